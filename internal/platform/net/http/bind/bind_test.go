package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "vitals/internal/platform/errors"
)

type payload struct {
	Site  string `json:"site" validate:"required"`
	Start string `json:"start" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1"`
}

func req(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestParseJSONHappyPath(t *testing.T) {
	in, err := ParseJSON[payload](req(`{"site":"a","start":"2024-01-01","limit":5}`))
	if err != nil {
		t.Fatal(err)
	}
	if in.Site != "a" || in.Limit != 5 {
		t.Fatalf("in = %+v", in)
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	_, err := ParseJSON[payload](req(`{"site":"a","start":"x","bogus":true}`))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("err = %v", err)
	}
}

func TestParseJSONRejectsMalformed(t *testing.T) {
	_, err := ParseJSON[payload](req(`{"site":`))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("err = %v", err)
	}
}

func TestParseJSONRejectsEmptyBody(t *testing.T) {
	_, err := ParseJSON[payload](req(``))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("err = %v", err)
	}
}

func TestParseJSONRejectsTrailingGarbage(t *testing.T) {
	_, err := ParseJSON[payload](req(`{"site":"a","start":"x"} {"again":1}`))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("err = %v", err)
	}
}

func TestParseJSONValidates(t *testing.T) {
	_, err := ParseJSON[payload](req(`{"start":"2024-01-01"}`))
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("err = %v", err)
	}
	if e, ok := perr.As(err); !ok || e.Field() != "site" {
		t.Fatalf("field = %v", err)
	}
}

func TestParseJSONValidatesRanges(t *testing.T) {
	_, err := ParseJSON[payload](req(`{"site":"a","start":"x","limit":-1}`))
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("err = %v", err)
	}
}
