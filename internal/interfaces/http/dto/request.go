package dto

// JoinRequest carries the signup fields for a combined
// register-and-connect flow
type JoinRequest struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"required,email"`
}
