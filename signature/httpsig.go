package signature

import (
	"fmt"
	"net/http"
	"strings"

	gwerrors "github.com/jrsteele09/go-cloud-gateway/internal/errors"
)

const (
	// SchemeSignature is the Authorization scheme written by RequestSigner
	SchemeSignature = "Signature"
	// SchemeBearer is accepted inbound as an equivalent of SchemeSignature
	SchemeBearer = "Bearer"

	// RequestTarget is the pseudo header covering method and path
	RequestTarget = "(request-target)"
	// HeaderDate is the timestamp header every signature must cover
	HeaderDate = "date"
)

// DefaultHeaders are the headers covered by outbound signatures
var DefaultHeaders = []string{RequestTarget, HeaderDate}

// Parameters are the fields of a Signature authorization header
type Parameters struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature string
}

// String renders the parameters in header form, without the scheme
func (p Parameters) String() string {
	return fmt.Sprintf(`keyId="%s",algorithm="%s",headers="%s",signature="%s"`,
		p.KeyID, p.Algorithm, strings.Join(p.Headers, " "), p.Signature)
}

// Covers reports whether the signature covers the named header
func (p Parameters) Covers(header string) bool {
	for _, h := range p.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// ParseAuthorization parses an Authorization header value. The returned scheme is empty
// when the header is not a Signature/Bearer credential at all.
func ParseAuthorization(value string) (string, *Parameters, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok {
		return "", nil, nil
	}
	switch {
	case strings.EqualFold(scheme, SchemeSignature):
		scheme = SchemeSignature
	case strings.EqualFold(scheme, SchemeBearer):
		scheme = SchemeBearer
	default:
		return "", nil, nil
	}

	fields, err := parseFields(rest)
	if err != nil {
		return scheme, nil, err
	}

	p := &Parameters{
		KeyID:     fields["keyId"],
		Algorithm: fields["algorithm"],
		Signature: fields["signature"],
	}
	if p.KeyID == "" || p.Algorithm == "" || p.Signature == "" {
		return scheme, nil, fmt.Errorf("%w: keyId, algorithm and signature are required", gwerrors.ErrMalformedSignatureHeader)
	}
	// http-signatures defaults to the date header alone when none are listed
	if h := strings.TrimSpace(fields["headers"]); h != "" {
		p.Headers = strings.Fields(strings.ToLower(h))
	} else {
		p.Headers = []string{HeaderDate}
	}
	return scheme, p, nil
}

// parseFields reads a comma separated list of key="value" pairs
func parseFields(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for {
		s = strings.TrimLeft(s, " ,")
		if s == "" {
			return fields, nil
		}
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected key=value", gwerrors.ErrMalformedSignatureHeader)
		}
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(rest, `"`) {
			return nil, fmt.Errorf("%w: value of %s must be quoted", gwerrors.ErrMalformedSignatureHeader, key)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated value for %s", gwerrors.ErrMalformedSignatureHeader, key)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("%w: duplicate field %s", gwerrors.ErrMalformedSignatureHeader, key)
		}
		fields[key] = rest[1 : end+1]
		s = rest[end+2:]
	}
}

// SigningString builds the canonical string for the listed headers. Signer and verifier
// both call it with the same header list, so the bytes are identical on both sides.
func SigningString(r *http.Request, headers []string) (string, error) {
	lines := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.ToLower(h)
		switch h {
		case RequestTarget:
			lines = append(lines, fmt.Sprintf("%s: %s %s", RequestTarget, strings.ToLower(r.Method), r.URL.RequestURI()))
		case "host":
			host := r.Host
			if host == "" {
				host = r.URL.Host
			}
			lines = append(lines, "host: "+host)
		default:
			values := r.Header.Values(h)
			if len(values) == 0 {
				return "", fmt.Errorf("%w: missing signed header %s", gwerrors.ErrMalformedSignatureHeader, h)
			}
			lines = append(lines, h+": "+strings.Join(values, ", "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
