package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/mail-dispatch/internal/domain"
)

var testRecipient = domain.Recipient{
	Email:     "ann@x.com",
	FirstName: "Ann",
	LastName:  "Smith",
	Company:   "Acme",
}

func TestRenderBracketTokens(t *testing.T) {
	rd := NewRenderer()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"first name", "Hi [first_name]", "Hi Ann"},
		{"last name", "Dear [last_name]", "Dear Smith"},
		{"email always substitutes", "[email]", "ann@x.com"},
		{"company", "From [company]", "From Acme"},
		{"case insensitive", "Hi [FIRST_NAME] [First_Name]", "Hi Ann Ann"},
		{"multiple tokens", "[first_name] [last_name] at [company]", "Ann Smith at Acme"},
		{"unknown token untouched", "Hi [nickname]", "Hi [nickname]"},
		{"no tokens is identity", "plain text, nothing to do", "plain text, nothing to do"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rd.Render(tt.template, testRecipient))
		})
	}
}

func TestRenderAbsentOptionalFieldsSubstituteEmpty(t *testing.T) {
	rd := NewRenderer()
	rec := domain.Recipient{Email: "ann@x.com", FirstName: "Ann"}

	assert.Equal(t, "Hello Ann at ", rd.Render("Hello [first_name] at [company]", rec))
	assert.Equal(t, "ann@x.com", rd.Render("[email]", rec))
}

func TestRenderDeterministic(t *testing.T) {
	rd := NewRenderer()
	template := "Hi [first_name], news from [company]"

	first := rd.Render(template, testRecipient)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, rd.Render(template, testRecipient))
	}
}

func TestRenderLiquidPass(t *testing.T) {
	rd := NewRenderer()

	assert.Equal(t, "Hi Ann", rd.Render("Hi {{ first_name }}", testRecipient))
	assert.Equal(t, "Ann works at Acme", rd.Render("{{ first_name }} works at {{ company }}", testRecipient))
}

func TestRenderBrokenLiquidFallsThrough(t *testing.T) {
	rd := NewRenderer()

	// An unterminated tag must not fail the recipient; lax mode
	// returns the input unchanged.
	in := "Hi {% if first_name"
	assert.Equal(t, in, rd.Render(in, testRecipient))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips tags", "<p>Hello <b>Ann</b></p>", "Hello Ann"},
		{"br becomes newline", "line one<br>line two", "line one\nline two"},
		{"self-closing br", "one<br/>two<br />three", "one\ntwo\nthree"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"plain text unchanged", "no markup here", "no markup here"},
		{"collapses whitespace", "<div>  spaced   out  </div>", "spaced out"},
		{"unclosed tag stripped", "before <img src=x> after", "before after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.input))
		})
	}
}

func TestPlainTextKeepsParagraphBreaks(t *testing.T) {
	got := PlainText("<p>first</p><p>second</p>")
	assert.Equal(t, "first\nsecond", got)
}
