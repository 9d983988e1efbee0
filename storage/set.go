package storage

import (
	"github.com/kbukum/filevault/errors"
)

// Set holds one backend per storage class.
type Set struct {
	public  Backend
	private Backend
	temp    Backend
}

// NewSet groups three independently constructed backends.
func NewSet(public, private, temp Backend) *Set {
	return &Set{public: public, private: private, temp: temp}
}

// For returns the backend serving class.
func (s *Set) For(class Class) (Backend, error) {
	var b Backend
	switch class {
	case ClassPublic:
		b = s.public
	case ClassPrivate:
		b = s.private
	case ClassTemp:
		b = s.temp
	default:
		return nil, errors.InvalidInput("class", "storage class must be one of public, private, temp")
	}
	if b == nil {
		return nil, errors.ServiceUnavailable(string(class) + " storage")
	}
	return b, nil
}

// Map applies wrap to every backend and returns the resulting Set.
func (s *Set) Map(wrap func(Class, Backend) Backend) *Set {
	return &Set{
		public:  wrap(ClassPublic, s.public),
		private: wrap(ClassPrivate, s.private),
		temp:    wrap(ClassTemp, s.temp),
	}
}
