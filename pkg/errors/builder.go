package errors

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

func validateCodeParams(service, category, sequence int) {
	if service < 0 || service > 99 {
		panic(fmt.Sprintf("errors: service code must be 0-99, got %d", service))
	}
	if category < 0 || category > 99 {
		panic(fmt.Sprintf("errors: category code must be 0-99, got %d", category))
	}
	if sequence < 0 || sequence > 999 {
		panic(fmt.Sprintf("errors: sequence must be 0-999, got %d", sequence))
	}
}

// NewError creates and registers an Errno. It panics on an invalid or duplicate code
// and when messageEN is empty.
func NewError(service, category, sequence int, httpStatus int, grpcCode codes.Code, messageEN, messageZH string) *Errno {
	validateCodeParams(service, category, sequence)
	if messageEN == "" {
		panic("errors: english message is required")
	}

	return Register(&Errno{
		Code:      MakeCode(service, category, sequence),
		HTTP:      httpStatus,
		GRPCCode:  grpcCode,
		MessageEN: messageEN,
		MessageZH: messageZH,
	})
}

// NewRequestErr registers a request/validation error (HTTP 400).
func NewRequestErr(service, sequence int, en, zh string) *Errno {
	return NewError(service, CategoryRequest, sequence, http.StatusBadRequest, codes.InvalidArgument, en, zh)
}

// NewPreconditionErr registers a precondition failure (HTTP 412).
func NewPreconditionErr(service, sequence int, en, zh string) *Errno {
	return NewError(service, CategoryPermission, sequence, http.StatusPreconditionFailed, codes.FailedPrecondition, en, zh)
}

// NewNotFoundErr registers a not found error (HTTP 404).
func NewNotFoundErr(service, sequence int, en, zh string) *Errno {
	return NewError(service, CategoryResource, sequence, http.StatusNotFound, codes.NotFound, en, zh)
}

// NewConflictErr registers a conflict error (HTTP 409).
func NewConflictErr(service, sequence int, en, zh string) *Errno {
	return NewError(service, CategoryConflict, sequence, http.StatusConflict, codes.Aborted, en, zh)
}

// NewInternalErr registers an internal error (HTTP 500).
func NewInternalErr(service, sequence int, en, zh string) *Errno {
	return NewError(service, CategoryInternal, sequence, http.StatusInternalServerError, codes.Internal, en, zh)
}
