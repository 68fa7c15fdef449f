package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the response and request header carrying the ray id.
const HeaderName = "X-Ray-ID"

// LocalsKey is where the ray id is stored on the fiber context.
const LocalsKey = "ray_id"

// New returns middleware that assigns every request a ray id.
// An incoming X-Ray-ID header is reused.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(LocalsKey, id)
		c.Set(HeaderName, id)
		return c.Next()
	}
}
