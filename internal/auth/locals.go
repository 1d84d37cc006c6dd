package auth

import "github.com/gofiber/fiber/v2"

// LocalUserID is the fiber local holding the authenticated user id.
const LocalUserID = "user_id"

// UserID returns the authenticated user id set by the JWT middleware.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(LocalUserID).(string)
	return uid
}
