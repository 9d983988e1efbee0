// Package security builds client TLS settings from configuration.
//
// filevault uses it for the Redis connection that holds share links:
//
//	redis:
//	  tls:
//	    enabled: true
//	    ca_file: /etc/filevault/redis-ca.pem
//	    min_version: "1.3"
//
// Subpackage tlstest generates throwaway certificates for tests.
package security
