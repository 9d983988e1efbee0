// Package util holds small parsing helpers shared by config sections.
package util
