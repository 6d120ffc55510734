package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/config"
	"employee-timesheet/internal/utils"
)

const (
	msgRequestDuplicate = "You've already submitted a request. Please wait for admin approval."
	msgRequestSubmitted = "Your request has been submitted! The admin will contact you soon."
)

// AccessRequestRoutes lets people without an account ask for one.
func AccessRequestRoutes(r *gin.RouterGroup) {
	r.GET("", func(c *gin.Context) {
		HTML(c, http.StatusOK, "register.html.tmpl", gin.H{
			"QRCodeURL": pathFor(c, "/request-access/qr.png"),
		})
	})

	r.POST("", func(c *gin.Context) {
		name, email, message := c.PostForm("name"), c.PostForm("email"), c.PostForm("message")
		form := gin.H{
			"QRCodeURL": pathFor(c, "/request-access/qr.png"),
			"Name":      name,
			"Email":     email,
			"Message":   message,
		}

		req, err := services(c).Intake.Submit(c.Request.Context(), name, email, message)
		switch {
		case err == nil:
			slog.Info("Access request submitted", "id", req.ID, "ip", c.ClientIP())
			addFlash(c, FlashSuccess, msgRequestSubmitted)
			redirect(c, "/login")
		case errors.Is(err, access.ErrDuplicateRequest):
			addFlash(c, FlashWarning, msgRequestDuplicate)
			HTML(c, http.StatusOK, "register.html.tmpl", form)
		case GetErrorStatus(err) == http.StatusBadRequest:
			form["Error"] = GetErrorMessage(err)
			HTML(c, http.StatusBadRequest, "register.html.tmpl", form)
		default:
			AbortWithError(c, fmt.Errorf("%w: %v", ErrDatabaseError, err))
		}
	})

	// QR code pointing at this page, for posting on a notice board.
	r.GET("/qr.png", func(c *gin.Context) {
		target := utils.UrlFor(c, pathFor(c, "/request-access"))
		png, err := qrcode.Encode(target, qrcode.Medium, config.QR_IMAGE_SIZE)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: %v", ErrInternalServer, err))
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})
}
