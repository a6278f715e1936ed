package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/afraznein/KTPDiscordRelay/internal/relay/linking"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageView struct {
	Title   string
	Heading string
	Message string
	Success bool
}

func resultView(res linking.Result) (pageView, int) {
	switch res.Outcome {
	case linking.OutcomeLinked:
		return pageView{
			Title:   "Account linked",
			Heading: "You're all set",
			Message: fmt.Sprintf("Your %s account %s is now linked. You can close this window.", res.Platform, res.Handle),
			Success: true,
		}, http.StatusOK
	case linking.OutcomeUnlinked:
		return pageView{
			Title:   "No account found",
			Heading: fmt.Sprintf("No %s account connected", res.Platform),
			Message: fmt.Sprintf("Add your %s account under User Settings > Connections in Discord, then run the link command again.", res.Platform),
		}, http.StatusOK
	case linking.OutcomeCancelled:
		return pageView{
			Title:   "Linking cancelled",
			Heading: "Authorization cancelled",
			Message: "No account was linked. Run the link command again if this was a mistake.",
		}, http.StatusOK
	case linking.OutcomeInvalidState:
		return pageView{
			Title:   "Link expired",
			Heading: "This link is invalid or has expired",
			Message: "Links are valid for a few minutes. Request a new one and try again.",
		}, http.StatusBadRequest
	default:
		return pageView{
			Title:   "Linking failed",
			Heading: "Something went wrong",
			Message: "We couldn't finish linking your account. Please try again later.",
		}, http.StatusBadGateway
	}
}

func renderResult(w http.ResponseWriter, r *http.Request, res linking.Result) {
	view, status := resultView(res)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, "result.html", view); err != nil {
		logger(r).Error("Failed to render page", "error", err)
	}
}
