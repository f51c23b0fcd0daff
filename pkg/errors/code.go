package errors

// Service codes (AA).
const (
	// ServiceCommon is for errors shared by every component.
	ServiceCommon = 0

	// ServiceCatalogConsole is for the catalog management console.
	ServiceCatalogConsole = 21
)

// Category codes (BB).
const (
	CategorySuccess    = 0
	CategoryRequest    = 1  // 400
	CategoryAuth       = 2  // 401
	CategoryPermission = 3  // 403 / 412
	CategoryResource   = 4  // 404
	CategoryConflict   = 5  // 409
	CategoryRateLimit  = 6  // 429
	CategoryInternal   = 7  // 500
	CategoryNetwork    = 10 // 502/503
	CategoryTimeout    = 11 // 504
	CategoryConfig     = 12 // 500
)

// MakeCode builds an AABBCCC code from service, category and sequence.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits code into service, category and sequence.
func ParseCode(code int) (service, category, sequence int) {
	return code / 100000, (code % 100000) / 1000, code % 1000
}

// GetCategory returns the category part of code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// IsClientError reports whether code belongs to a 4xx category.
func IsClientError(code int) bool {
	c := GetCategory(code)
	return c >= CategoryRequest && c <= CategoryRateLimit
}

// IsServerError reports whether code belongs to a 5xx category.
func IsServerError(code int) bool {
	c := GetCategory(code)
	return c >= CategoryInternal && c <= CategoryConfig
}
