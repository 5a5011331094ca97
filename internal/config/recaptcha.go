package config

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const recaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

type RecaptchaResponse struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
	Action  string  `json:"action"`
}

// Recaptcha verifies login captchas. A zero secret disables it.
type Recaptcha struct {
	Secret   string
	Endpoint string
	MinScore float64
}

func NewRecaptcha(secret string) *Recaptcha {
	return &Recaptcha{Secret: secret, Endpoint: recaptchaEndpoint, MinScore: 0.5}
}

func (r *Recaptcha) Enabled() bool {
	return r != nil && r.Secret != ""
}

// Verify reports whether the token passed and scored at least MinScore.
func (r *Recaptcha) Verify(responseToken string) (bool, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("secret", r.Secret)
	args.Set("response", responseToken)

	agent := fiber.Post(r.Endpoint).Form(args).Timeout(5 * time.Second)

	var result RecaptchaResponse
	_, _, errs := agent.Struct(&result)
	if len(errs) > 0 {
		return false, errs[0]
	}

	return result.Success && result.Score >= r.MinScore, nil
}
