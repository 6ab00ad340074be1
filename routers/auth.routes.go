package routers

import (
	"github.com/gofiber/fiber/v2"

	authControllers "forma/controllers/auth"
	authValidator "forma/validators/auth"
)

// SetupAuthRoutes sets up signup and login routes
func SetupAuthRoutes(app *fiber.App, ac *authControllers.AuthController) {
	authGroup := app.Group("/auth")

	authGroup.Post("/signup", authValidator.Signup(), ac.Signup)
	authGroup.Post("/login", authValidator.Login(), ac.Login)
}
