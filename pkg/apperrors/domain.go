package apperrors

// Domain errors shared between repositories and handlers.
var (
	ErrUserNotFound         = NotFound("user not found")
	ErrPostNotFound         = NotFound("post not found")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrNotificationNotFound = NotFound("notification not found or not authorized")
	ErrEmailTaken           = AlreadyExists("email already exists")
	ErrUsernameTaken        = AlreadyExists("username is already taken")
	ErrAlreadyFollowing     = AlreadyExists("you are already following this user")
	ErrNotFollowingUser     = NotFollowing("you are not following this user")
	ErrNotParticipant       = NotAuthorized("not authorized to view this conversation")
	ErrInvalidCredentials   = Unauthorized("invalid credentials")
	ErrAccountDeactivated   = Unauthorized("account is deactivated")
	ErrResetTokenInvalid    = Expired("invalid or expired reset token")
)
