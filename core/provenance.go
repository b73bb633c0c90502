package core

import (
	"bufio"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// provenanceHeaders are checked in order; the first owner match wins.
var provenanceHeaders = []string{"From", "Sender", "Reply-To"}

// Provenance rewards mail items sent by one of the owner's addresses.
type Provenance struct {
	owners map[string]struct{}
	score  float64
}

// NewProvenance returns nil when no owner address is configured.
func NewProvenance(emails []string, score float64) *Provenance {
	owners := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			owners[e] = struct{}{}
		}
	}
	if len(owners) == 0 {
		return nil
	}
	return &Provenance{owners: owners, score: score}
}

// Match inspects the header block at the top of a mail item's text and
// returns the first header carrying an owner address.
func (p *Provenance) Match(text string) (header, address string, ok bool) {
	if p == nil {
		return "", "", false
	}
	block, _, _ := strings.Cut(text, "\n\n")
	hdr, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(block + "\n\n")))
	if err != nil {
		return "", "", false
	}
	for _, h := range provenanceHeaders {
		raw := hdr.Get(h)
		if raw == "" {
			continue
		}
		for _, addr := range addresses(raw) {
			if _, hit := p.owners[addr]; hit {
				return h, addr, true
			}
		}
	}
	return "", "", false
}

// addresses parses an address list, falling back to whitespace and comma
// separated tokens holding an '@' when the list is not RFC 5322 clean.
func addresses(raw string) []string {
	if list, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}
	var out []string
	for _, f := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '<' || r == '>' || r == '"'
	}) {
		if strings.Contains(f, "@") {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}
