package server

import (
	"github.com/gofiber/fiber/v2"
)

// formField returns a submitted form value and whether the field was present
// at all. Both urlencoded and multipart bodies are accepted.
func formField(c *fiber.Ctx, key string) (string, bool) {
	if args := c.Request().PostArgs(); args.Has(key) {
		return string(args.Peek(key)), true
	}
	if form, err := c.MultipartForm(); err == nil {
		if values, ok := form.Value[key]; ok && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

// html prepares c for a rendered page.
func html(c *fiber.Ctx, status int) *fiber.Ctx {
	c.Status(status)
	c.Type("html", "utf-8")
	return c
}
