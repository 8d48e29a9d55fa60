package cbf

import (
	"strconv"
	"strings"
)

// Header field names, matched ignoring case.
const (
	FieldContentType             = "Content-Type"
	FieldContentTransferEncoding = "Content-Transfer-Encoding"
	FieldBinarySize              = "X-Binary-Size"
	FieldBinaryID                = "X-Binary-ID"
	FieldPadding                 = "X-Binary-Size-Padding"
	FieldByteOrder               = "X-Binary-Element-Byte-Order"
	FieldContentMD5              = "Content-MD5"
	FieldElementType             = "X-Binary-Element-Type"
	FieldElementCount            = "X-Binary-Number-of-Elements"
	FieldWidth                   = "X-Binary-Size-Fastest-Dimension"
	FieldHeight                  = "X-Binary-Size-Second-Dimension"
	FieldDepth                   = "X-Binary-Size-Third-Dimension"
)

// Metadata is the typed form of a binary section's header block.
type Metadata struct {
	ContentType             ContentType             `json:"content_type"`
	ContentTransferEncoding ContentTransferEncoding `json:"content_transfer_encoding"`
	Size                    int                     `json:"size"`
	Padding                 *int                    `json:"padding,omitempty"`
	ByteOrder               ByteOrder               `json:"byte_order"`
	MD5Digest               *string                 `json:"md5_digest,omitempty"`
	ElementType             ElementType             `json:"element_type"`
	ElementCount            int                     `json:"element_count"`
	Width                   *int                    `json:"width,omitempty"`
	Height                  *int                    `json:"height,omitempty"`
	Depth                   *int                    `json:"depth,omitempty"`
}

// ParseMetadata converts a header block into Metadata.
//
// A required field that is absent fails with a *FieldError whose Missing flag
// is set; any field that is present but malformed fails with a *FieldError
// naming the field (and, for structured values, the offending part).
func ParseMetadata(h *Headers) (*Metadata, error) {
	md := &Metadata{}
	var err error

	raw, ok := h.Lookup(FieldContentType)
	if !ok {
		return nil, missingField(FieldContentType)
	}
	if md.ContentType, err = ParseContentType(raw); err != nil {
		return nil, err
	}

	raw, ok = h.Lookup(FieldContentTransferEncoding)
	if !ok {
		return nil, missingField(FieldContentTransferEncoding)
	}
	if md.ContentTransferEncoding, err = ParseContentTransferEncoding(raw); err != nil {
		return nil, err
	}

	if md.Size, err = requiredCount(h, FieldBinarySize); err != nil {
		return nil, err
	}
	if md.Padding, err = optionalCount(h, FieldPadding); err != nil {
		return nil, err
	}

	raw, ok = h.Lookup(FieldByteOrder)
	if !ok {
		return nil, missingField(FieldByteOrder)
	}
	if md.ByteOrder, err = ParseByteOrder(raw); err != nil {
		return nil, err
	}

	if raw, ok := h.Lookup(FieldContentMD5); ok {
		digest := raw
		md.MD5Digest = &digest
	}

	raw, ok = h.Lookup(FieldElementType)
	if !ok {
		return nil, missingField(FieldElementType)
	}
	if md.ElementType, err = ParseElementType(raw); err != nil {
		return nil, err
	}

	if md.ElementCount, err = requiredCount(h, FieldElementCount); err != nil {
		return nil, err
	}
	if md.Width, err = optionalCount(h, FieldWidth); err != nil {
		return nil, err
	}
	if md.Height, err = optionalCount(h, FieldHeight); err != nil {
		return nil, err
	}
	if md.Depth, err = optionalCount(h, FieldDepth); err != nil {
		return nil, err
	}

	return md, nil
}

func parseCount(field, raw string) (int, error) {
	n, err := strconv.ParseUint(raw, 10, strconv.IntSize-1)
	if err != nil {
		return 0, invalidField(field, raw)
	}
	return int(n), nil
}

func requiredCount(h *Headers, field string) (int, error) {
	raw, ok := h.Lookup(field)
	if !ok {
		return 0, missingField(field)
	}
	return parseCount(field, raw)
}

func optionalCount(h *Headers, field string) (*int, error) {
	raw, ok := h.Lookup(field)
	if !ok {
		return nil, nil
	}
	n, err := parseCount(field, raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ContentType is the parsed Content-Type field.
type ContentType struct {
	MimeType   string      `json:"mime_type"`
	Subtype    string      `json:"subtype"`
	Conversion *Conversion `json:"conversion,omitempty"`
}

// Conversion is the compression named by the conversions= parameter.
type Conversion struct {
	Kind ConversionKind `json:"kind"`
	// Packed is only meaningful for ConversionPacked and may be nil there.
	Packed *PackedKind `json:"packed,omitempty"`
}

// ConversionKind enumerates the recognised conversions.
type ConversionKind int

const (
	ConversionPacked ConversionKind = iota
	ConversionCanonical
	ConversionByteOffset
	ConversionBackgroundOffsetDelta
)

var conversionTokens = map[string]ConversionKind{
	"x-cbf_packed":                  ConversionPacked,
	"x-cbf_packed_v2":               ConversionPacked,
	"x-cbf_canonical":               ConversionCanonical,
	"x-cbf_byte_offset":             ConversionByteOffset,
	"x-cbf_background_offset_delta": ConversionBackgroundOffsetDelta,
}

var conversionNames = []string{"packed", "canonical", "byte_offset", "background_offset_delta"}

func (k ConversionKind) String() string {
	if k >= 0 && int(k) < len(conversionNames) {
		return conversionNames[k]
	}
	return "unknown"
}

func (k ConversionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ConversionKind) UnmarshalText(text []byte) error {
	i, err := unmarshalName(conversionNames, FieldContentType+" conversions", text)
	if err != nil {
		return err
	}
	*k = ConversionKind(i)
	return nil
}

// PackedKind is the sub-selector of the packed conversion.
type PackedKind int

const (
	PackedFlat PackedKind = iota
	PackedUncorrelatedSections
)

var packedNames = []string{"flat", "uncorrelated_sections"}

func (k PackedKind) String() string {
	if k == PackedUncorrelatedSections {
		return "uncorrelated_sections"
	}
	return "flat"
}

func (k PackedKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PackedKind) UnmarshalText(text []byte) error {
	i, err := unmarshalName(packedNames, FieldContentType+" packed", text)
	if err != nil {
		return err
	}
	*k = PackedKind(i)
	return nil
}

// ParseContentType parses a value like
//
//	application/octet-stream;conversions="x-CBF_BYTE_OFFSET"
//
// The packed sub-selector (flat or uncorrelated_sections) may appear before or
// after conversions= and is only kept when the conversion is packed.
func ParseContentType(s string) (ContentType, error) {
	typePart, params, hasParams := strings.Cut(s, ";")

	mime, sub, ok := strings.Cut(typePart, "/")
	if !ok {
		return ContentType{}, invalidField(FieldContentType, s)
	}
	ct := ContentType{MimeType: strings.ToLower(mime), Subtype: strings.ToLower(sub)}
	if !hasParams {
		return ct, nil
	}

	var (
		conversion *Conversion
		packed     *PackedKind
	)
	for _, param := range strings.Split(strings.ToLower(params), ";") {
		param = strings.TrimSpace(param)
		switch {
		case strings.HasPrefix(param, "conversions="):
			token := strings.Trim(strings.TrimPrefix(param, "conversions="), " \t\r\n\"")
			kind, ok := conversionTokens[token]
			if !ok {
				return ContentType{}, &FieldError{Field: FieldContentType + " conversions", Value: token}
			}
			conversion = &Conversion{Kind: kind}
		case strings.HasPrefix(param, "uncorrelated_sections"):
			k := PackedUncorrelatedSections
			packed = &k
		case strings.HasPrefix(param, "flat"):
			k := PackedFlat
			packed = &k
		}
	}
	if conversion != nil && conversion.Kind == ConversionPacked {
		conversion.Packed = packed
	}
	ct.Conversion = conversion
	return ct, nil
}

// ContentTransferEncoding is the parsed Content-Transfer-Encoding field.
type ContentTransferEncoding struct {
	Encoding Encoding `json:"encoding"`
	Charset  *Charset `json:"charset,omitempty"`
}

// Encoding enumerates the transfer encodings.
type Encoding int

const (
	EncodingBase8 Encoding = iota
	EncodingBase10
	EncodingBase16
	EncodingBase32K
	EncodingBase64
	EncodingBinary
	EncodingQuotedPrintable
)

var encodingNames = []string{"x-base8", "x-base10", "x-base16", "x-base32k", "base64", "binary", "quoted-printable"}

func (e Encoding) String() string {
	if int(e) < len(encodingNames) {
		return encodingNames[e]
	}
	return "unknown"
}

func (e Encoding) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *Encoding) UnmarshalText(text []byte) error {
	i, err := unmarshalName(encodingNames, FieldContentTransferEncoding, text)
	if err != nil {
		return err
	}
	*e = Encoding(i)
	return nil
}

// Charset enumerates the charsets accepted in Content-Transfer-Encoding.
type Charset int

const (
	CharsetUSASCII Charset = iota
	CharsetUTF8
	CharsetUTF16
)

var charsetNames = []string{"us-ascii", "utf-8", "utf-16"}

func (c Charset) String() string {
	if int(c) < len(charsetNames) {
		return charsetNames[c]
	}
	return "unknown"
}

func (c Charset) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Charset) UnmarshalText(text []byte) error {
	i, err := unmarshalName(charsetNames, FieldContentTransferEncoding+" charset", text)
	if err != nil {
		return err
	}
	*c = Charset(i)
	return nil
}

// ParseContentTransferEncoding parses a value like `BINARY; charset="UTF-8"`.
func ParseContentTransferEncoding(s string) (ContentTransferEncoding, error) {
	parts := strings.Split(strings.ToLower(s), ";")

	enc, ok := lookup(encodingNames, strings.TrimSpace(parts[0]))
	if !ok {
		return ContentTransferEncoding{}, invalidField(FieldContentTransferEncoding, s)
	}
	cte := ContentTransferEncoding{Encoding: Encoding(enc)}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "charset=") {
			continue
		}
		value := strings.Split(part, "=")[1]
		value = strings.Trim(value, " \t\r\n\"")
		cs, ok := lookup(charsetNames, value)
		if !ok {
			return ContentTransferEncoding{}, &FieldError{Field: FieldContentTransferEncoding + " charset", Value: value}
		}
		charset := Charset(cs)
		cte.Charset = &charset
		break
	}
	return cte, nil
}

// ByteOrder of the binary elements.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

var byteOrderNames = []string{"little_endian", "big_endian"}

func (b ByteOrder) String() string {
	if int(b) < len(byteOrderNames) {
		return byteOrderNames[b]
	}
	return "unknown"
}

func (b ByteOrder) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *ByteOrder) UnmarshalText(text []byte) error {
	v, err := ParseByteOrder(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ParseByteOrder accepts little_endian or big_endian in any case.
func ParseByteOrder(s string) (ByteOrder, error) {
	i, ok := lookup(byteOrderNames, strings.ToLower(s))
	if !ok {
		return 0, invalidField(FieldByteOrder, s)
	}
	return ByteOrder(i), nil
}

// ElementType is the declared type of each binary element.
type ElementType int

const (
	Unsigned1BitInteger ElementType = iota
	Unsigned8BitInteger
	Signed8BitInteger
	Unsigned16BitInteger
	Signed16BitInteger
	Unsigned32BitInteger
	Signed32BitInteger
	Signed32BitReal
	Signed64BitReal
	Signed32BitComplex
)

var elementTypeNames = []string{
	"unsigned 1-bit integer",
	"unsigned 8-bit integer",
	"signed 8-bit integer",
	"unsigned 16-bit integer",
	"signed 16-bit integer",
	"unsigned 32-bit integer",
	"signed 32-bit integer",
	"signed 32-bit real ieee",
	"signed 64-bit real ieee",
	"signed 32-bit complex ieee",
}

func (t ElementType) String() string {
	if int(t) < len(elementTypeNames) {
		return elementTypeNames[t]
	}
	return "unknown"
}

func (t ElementType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ElementType) UnmarshalText(text []byte) error {
	v, err := ParseElementType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseElementType matches one of the ten element type names in any case.
func ParseElementType(s string) (ElementType, error) {
	i, ok := lookup(elementTypeNames, strings.ToLower(s))
	if !ok {
		return 0, invalidField(FieldElementType, s)
	}
	return ElementType(i), nil
}

// unmarshalName is the inverse of the String methods above, ignoring case.
func unmarshalName(table []string, field string, text []byte) (int, error) {
	i, ok := lookup(table, strings.ToLower(string(text)))
	if !ok {
		return 0, invalidField(field, string(text))
	}
	return i, nil
}

func lookup(table []string, s string) (int, bool) {
	for i, name := range table {
		if name == s {
			return i, true
		}
	}
	return 0, false
}
