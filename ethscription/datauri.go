package ethscription

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
)

// defaultMimeType is substituted when the data URI omits a mediatype
// (spec.md §4.C data URI grammar).
const defaultMimeType = "text/plain;charset=US-ASCII"

// maxMimeTypeLen is the forwarding clamp on the mediatype portion of a data
// URI; it does not affect the payload.
const maxMimeTypeLen = 1000

// DataURI is a parsed RFC-2397 "data:" URI, retaining enough structure to
// reconstruct the canonical form that gets embedded in a Create op.
type DataURI struct {
	MimeType string
	Base64   bool
	ESIP6    bool
	Payload  []byte
}

// ClampedMimeType returns MimeType truncated to maxMimeTypeLen bytes, per the
// spec's forwarding rule.
func (d *DataURI) ClampedMimeType() string {
	if len(d.MimeType) <= maxMimeTypeLen {
		return d.MimeType
	}
	return d.MimeType[:maxMimeTypeLen]
}

// Normalized reconstructs the canonical "data:" URI bytes that should be
// stored as the ethscription's content URI: the clamped mediatype, the
// correct separator, and the untouched payload.
func (d *DataURI) Normalized() []byte {
	var b bytes.Buffer
	b.WriteString("data:")
	b.WriteString(d.ClampedMimeType())
	if d.Base64 {
		b.WriteString(";base64,")
	} else {
		b.WriteByte(',')
	}
	b.Write(d.Payload)
	return b.Bytes()
}

// ParseDataURI parses input as an RFC-2397 data URI per spec.md §4.C's
// grammar: "data:" [mediatype] ["," | ";base64,"] payload, where
// mediatype = type "/" subtype *(";" parameter). It reports ok=false if
// input is not a well-formed data URI.
func ParseDataURI(input []byte) (*DataURI, bool) {
	const prefix = "data:"
	s := string(input)
	if !strings.HasPrefix(s, prefix) {
		return nil, false
	}
	rest := s[len(prefix):]

	commaIdx := strings.IndexByte(rest, ',')
	if commaIdx < 0 {
		return nil, false
	}
	meta := rest[:commaIdx]
	payload := rest[commaIdx+1:]

	base64 := false
	const base64Suffix = ";base64"
	if strings.HasSuffix(meta, base64Suffix) {
		base64 = true
		meta = meta[:len(meta)-len(base64Suffix)]
	}

	typeSubtype, params, hasParams := strings.Cut(meta, ";")
	var mimeType string
	switch {
	case typeSubtype == "":
		// A missing mediatype defaults to text/plain;charset=US-ASCII; a
		// bare parameter list (e.g. ";rule=esip6") attaches to that default
		// rather than invalidating the URI.
		mimeType = defaultMimeType
		if hasParams {
			mimeType += ";" + params
		}
	case strings.Contains(typeSubtype, "/"):
		mimeType = meta
	default:
		// A present-but-malformed mediatype (no type/subtype) is not a
		// valid data URI.
		return nil, false
	}

	esip6 := false
	for _, param := range strings.Split(mimeType, ";")[1:] {
		if strings.EqualFold(strings.TrimSpace(param), "rule=esip6") {
			esip6 = true
			break
		}
	}

	return &DataURI{
		MimeType: mimeType,
		Base64:   base64,
		ESIP6:    esip6,
		Payload:  []byte(payload),
	}, true
}

// ParseGzippedDataURI implements ESIP-7: input is treated as a gzip stream;
// if it decompresses cleanly and the result is itself a valid data URI, that
// parsed URI is returned.
func ParseGzippedDataURI(input []byte) (*DataURI, bool) {
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, false
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return ParseDataURI(decompressed)
}
