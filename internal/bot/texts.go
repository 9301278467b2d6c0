package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/telecopter/core/telegram/format"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const (
	welcomeText = "Welcome! I can pass your movie and TV show requests to the admin.\n\n" +
		"/request - search for a movie or show\n" +
		"/manual - describe a request in your own words\n" +
		"/report - report a problem\n" +
		"/myrequests - see your requests\n" +
		"/cancel - stop the current action"
	adminWelcomeText = welcomeText + "\n\nAdmin:\n/tasks - pending tasks"

	askAccessText       = "Hi! This bot is private. Would you like to ask the admin for access?"
	accessSubmittedText = "Your access request has been sent to the admin. You will get a message once it is reviewed."
	accessPendingText   = "Your access request is still waiting for the admin. Please be patient."
	accessRejectedText  = "Your access request was not approved. You cannot use this bot."
	accessLaterText     = "No problem. Send /start whenever you want to ask for access."
	notApprovedText     = "Your account is not approved yet. Send /start to request access."
	adminOnlyText       = "This command is for the admin only."

	promptMediaText   = "Please type the name of the movie or TV show you want to request. Or /cancel."
	promptManualText  = "Please describe what you would like to request (title, year, anything that helps). Or /cancel."
	promptProblemText = "Please describe the problem. Or /cancel."
	promptNoteText    = "Please type your note for the admin (up to 1000 characters). Or /cancel."
	chooseAboveText   = "Please choose one of the options above, or /cancel."

	queryTooShortText   = "Please type at least 2 characters."
	manualTooShortText  = "Please give a bit more detail (at least 5 characters)."
	problemTooShortText = "Please give a bit more detail (at least 10 characters)."
	searchDisabledText  = "Search is not available right now. " + promptManualText
	searchFailedText    = "Search failed. Please try again, or describe the request manually."
	expiredText         = "This selection has expired. Please start again with /request."

	cancelledText     = "Cancelled."
	nothingToCancel   = "Nothing to cancel."
	genericErrorText  = "Something went wrong. Please try again later."
	noPendingTasks    = "No pending tasks."
	noRequestsText    = "You have not made any requests yet. Try /request."
	unknownText       = "Sorry, I did not understand that. Send /help for the list of commands."
	unknownDocText    = "I cannot process files."
	unknownButtonText = "This button is no longer active."
)

var typeLabels = map[domain.RequestType]string{
	domain.TypeMovie:        "Movie",
	domain.TypeTV:           "TV show",
	domain.TypeManualMedia:  "Manual request",
	domain.TypeProblem:      "Problem report",
	domain.TypeUserApproval: "Access request",
}

func typeLabel(t domain.RequestType) string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

func mediaLabel(mediaType string) string {
	if mediaType == tmdb.MediaTV {
		return typeLabel(domain.TypeTV)
	}
	return typeLabel(domain.TypeMovie)
}

func titleYear(title string, year *int) string {
	if year == nil {
		return title
	}
	return fmt.Sprintf("%s (%d)", title, *year)
}

func noResultsText(query string) string {
	return fmt.Sprintf("No results found for \"%s\". Try another title, or describe the request manually.", query)
}

func resultsText(results []tmdb.Result) string {
	var b strings.Builder
	b.WriteString("Here is what I found:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s · %s", i+1, titleYear(r.Title, r.Year), mediaLabel(r.MediaType))
	}
	b.WriteString("\n\nPick one, or describe the request manually.")
	return b.String()
}

func confirmText(d *tmdb.Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", titleYear(d.Title, d.Year), mediaLabel(d.MediaType))
	if len(d.Genres) > 0 {
		fmt.Fprintf(&b, " · %s", strings.Join(d.Genres, ", "))
	}
	if d.Tagline != "" {
		fmt.Fprintf(&b, "\n\n%s", d.Tagline)
	}
	fmt.Fprintf(&b, "\n\n%s\n\nSubmit this request?", format.Clip(d.Overview, 600))
	return b.String()
}

func submittedText(req *domain.Request) string {
	if req.RequestType == domain.TypeProblem {
		return fmt.Sprintf("Thanks! Your problem report has been sent to the admin (ID: %d).", req.RequestID)
	}
	return fmt.Sprintf("Your request for \"%s\" has been submitted (ID: %d). The admin will review it soon.",
		format.OneLine(format.Clip(req.Title, 80)), req.RequestID)
}

func historyText(p domain.RequestPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your requests (page %d/%d):\n", p.Page, p.Pages())
	for _, r := range p.Items {
		fmt.Fprintf(&b, "\n#%d %s · %s\n%s · %s", r.RequestID,
			format.OneLine(format.Clip(titleYear(r.Title, r.Year), 80)), typeLabel(r.RequestType),
			r.Status, r.CreatedAt.Format("2006-01-02"))
		if r.AdminNote != nil {
			fmt.Fprintf(&b, "\nAdmin's note: %s", format.OneLine(format.Clip(*r.AdminNote, 120)))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// taskText is the admin card for one request.
func taskText(req domain.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · ID %d\n", typeLabel(req.RequestType), req.RequestID)
	fmt.Fprintf(&b, "From user %d\n\n", req.UserID)
	b.WriteString(titleYear(req.Title, req.Year))
	if req.TMDBID != nil {
		fmt.Fprintf(&b, "\nTMDB: %d", *req.TMDBID)
	}
	if req.IMDBID != nil {
		fmt.Fprintf(&b, "\nIMDb: https://www.imdb.com/title/%s/", *req.IMDBID)
	}
	if req.UserQuery != nil && *req.UserQuery != req.Title {
		fmt.Fprintf(&b, "\nSearched for: %s", *req.UserQuery)
	}
	if req.UserNote != nil {
		fmt.Fprintf(&b, "\n\nUser's note: %s", *req.UserNote)
	}
	fmt.Fprintf(&b, "\n\nStatus: %s", req.Status)
	return b.String()
}

func tasksFooterText(p domain.RequestPage) string {
	return fmt.Sprintf("Pending tasks: %d (page %d/%d)", p.Total, p.Page, p.Pages())
}

func withResult(card, result string) string {
	if card == "" {
		return result
	}
	return card + "\n\n" + result
}
