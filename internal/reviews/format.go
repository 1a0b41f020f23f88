package reviews

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cine-social/cine-cli/internal/api"
)

// FormatText writes a summary line followed by one entry per review:
//
//	[id] Display Name @username (2025-01-15T10:00:00Z) 8/10 (edited)
//	  content
//
// An empty list writes "No reviews yet.\n".
func FormatText(w io.Writer, list []api.DetailedReview) {
	if len(list) == 0 {
		fmt.Fprint(w, "No reviews yet.\n")
		return
	}

	sum := 0
	for _, dr := range list {
		sum += dr.Review.Rating
	}
	noun := "reviews"
	if len(list) == 1 {
		noun = "review"
	}
	fmt.Fprintf(w, "%d %s, average rating %.1f/10\n", len(list), noun, float64(sum)/float64(len(list)))

	for _, dr := range list {
		fmt.Fprintln(w)
		author := "@" + dr.User.Username
		if dr.User.DisplayName != "" {
			author = dr.User.DisplayName + " " + author
		}
		header := fmt.Sprintf("[%s] %s (%s) %d/10", dr.Review.ID, author, dr.Review.CreatedAt.UTC().Format(time.RFC3339), dr.Review.Rating)
		if dr.Review.UpdatedAt != nil {
			header += " (edited)"
		}
		fmt.Fprintln(w, header)
		fmt.Fprintf(w, "  %s\n", dr.Review.Content)
	}
}

// FormatJSON writes the reviews as an indented JSON array.
func FormatJSON(w io.Writer, list []api.DetailedReview) error {
	if len(list) == 0 {
		_, err := fmt.Fprint(w, "[]\n")
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
