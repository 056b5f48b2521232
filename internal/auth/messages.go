package auth

// Client-facing messages. Clients match on some of these strings, so they
// are part of the API and must not be reworded casually.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoginInternal      = "Login: Internal server error"
	MsgLoginSuccess       = "Login successful"

	MsgRegisterInvalid  = "There was an error with the registration data"
	MsgRegisterInternal = "Register: Internal server error"
	MsgRegisterSuccess  = "Register successful"
	MsgUserIDExists     = "User id already exists"
	MsgNicknameExists   = "Nickname already exists"

	MsgAccessInternal = "Access Token: Internal server error"
	MsgAccessInvalid  = "Access Token: Invalid token"
	MsgUserVerified   = "User verified"

	MsgRefreshInternal = "Refresh Token: Internal server error"
	MsgRefreshInvalid  = "Refresh Token: Invalid token"
	MsgRefreshNoToken  = "Refresh Token: No token provided"
	MsgRefreshFailed   = "Token refresh failed"
	MsgTokenRefreshed  = "Token refreshed"

	MsgLogoutInternal = "Logout: Internal server error"
	MsgLogoutSuccess  = "Logout successful"
)

// Form field names used in error payloads.
const (
	FieldUserID   = "userId"
	FieldPassword = "password"
	FieldNickname = "nickname"
)
