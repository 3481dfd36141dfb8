package apperrors

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeSelfReference Code = "SELF_REFERENCE"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeNotFollowing  Code = "NOT_FOLLOWING"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeExpired       Code = "EXPIRED"
	CodeDelivery      Code = "DELIVERY_ERROR"
	CodeStorage       Code = "STORAGE_ERROR"
)
