package services

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/go-playground/validator.v9"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
)

const passwordSpecials = "@$!%*?&"

var (
	validate    = validator.New()
	plainPolicy = bluemonday.StrictPolicy()

	// Local part and domain labels of an RFC 5322 address. Length limits
	// are checked separately since RE2 has no lookahead.
	emailPattern = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[A-Za-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?\\.)+[A-Za-z]{2,}$")
)

func validateSignup(req *dto.SignupRequest) error {
	if validate.Var(req.Fullname, "min=3") != nil {
		return invalid("fullname", "Full Name must be at least 3 letters long.")
	}
	if validate.Var(req.Email, "required") != nil {
		return invalid("email", "Email is required.")
	}
	if !validEmail(req.Email) {
		return invalid("email", "Invalid email format.")
	}
	if validate.Var(req.Password, "required") != nil {
		return invalid("password", "Password is required.")
	}
	if !validPassword(req.Password) {
		return invalid("password", "Password must be 8-64 characters long and include uppercase, lowercase, digit, and special character.")
	}
	return nil
}

func validEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at > 64 {
		return false
	}
	return emailPattern.MatchString(email)
}

func validPassword(password string) bool {
	if len(password) < 8 || len(password) > 64 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

// blogFields is a submission after validation. Title, description and
// content are kept exactly as submitted.
type blogFields struct {
	Title   string
	Des     string
	Banner  string
	Tags    []string
	Content json.RawMessage
	Draft   bool
}

func validateBlog(req *dto.CreateBlogRequest) (*blogFields, error) {
	if validate.Var(strings.TrimSpace(req.Title), "required") != nil {
		return nil, invalid("title", "Title is required.")
	}
	// Keeps the title and its slug inside the blogs columns.
	if validate.Var(req.Title, "max=250") != nil {
		return nil, invalid("title", "Title must be at most 250 characters.")
	}
	if validate.Var(req.Des, "required,max=200") != nil {
		return nil, invalid("des", "Description must be between 1 and 200 characters.")
	}
	banner := strings.TrimSpace(req.Banner)
	if validate.Var(banner, "required") != nil {
		return nil, invalid("banner", "Banner image is required.")
	}
	if validate.Var(req.Tags, "min=1,max=10") != nil {
		return nil, invalid("tags", "At least one tag is required, Maximum 10 tags allowed.")
	}
	if contentBlocks(req.Content) == 0 {
		return nil, invalid("content", "Blog content is required.")
	}

	tags := make([]string, len(req.Tags))
	for i, tag := range req.Tags {
		tags[i] = strings.ToLower(strings.TrimSpace(tag))
	}
	return &blogFields{
		Title:   req.Title,
		Des:     req.Des,
		Banner:  banner,
		Tags:    tags,
		Content: req.Content,
		Draft:   req.Draft,
	}, nil
}

func contentBlocks(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var doc struct {
		Blocks []json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0
	}
	return len(doc.Blocks)
}

// plainText strips markup for display outside the editor. Stored text is
// never passed through it.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}
