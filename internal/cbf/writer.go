package cbf

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"io"
)

// WriteImage writes img as a single-image CBF document with a byte-offset
// compressed payload. Only the six integer kinds the codec reads back are
// writable.
func WriteImage(w io.Writer, img *Image) error {
	return WriteImages(w, img)
}

// WriteImages writes one data block per image.
func WriteImages(w io.Writer, images ...*Image) error {
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, "###CBF: VERSION 1.5\r\n"); err != nil {
		return err
	}
	for i, img := range images {
		if err := writeSection(bw, img, i+1); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func writeSection(w *bufio.Writer, img *Image, id int) error {
	elementType, err := elementTypeFor(img.Kind())
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := encodePixels(&payload, img.Pixels); err != nil {
		return err
	}
	sum := md5.Sum(payload.Bytes())

	fmt.Fprintf(w, "\r\ndata_image_%d\r\n\r\n_array_data.data\r\n;\r\n", id)
	io.WriteString(w, StartSentinel)
	fmt.Fprintf(w, "Content-Type: application/octet-stream;\r\n     conversions=\"x-CBF_BYTE_OFFSET\"\r\n")
	fmt.Fprintf(w, "Content-Transfer-Encoding: BINARY\r\n")
	fmt.Fprintf(w, "%s: %d\r\n", FieldBinarySize, payload.Len())
	fmt.Fprintf(w, "%s: %d\r\n", FieldBinaryID, id)
	fmt.Fprintf(w, "%s: \"%s\"\r\n", FieldElementType, elementType)
	fmt.Fprintf(w, "%s: LITTLE_ENDIAN\r\n", FieldByteOrder)
	fmt.Fprintf(w, "%s: %s\r\n", FieldContentMD5, base64.StdEncoding.EncodeToString(sum[:]))
	fmt.Fprintf(w, "%s: %d\r\n", FieldElementCount, img.Len())
	fmt.Fprintf(w, "%s: %d\r\n", FieldWidth, img.Width)
	fmt.Fprintf(w, "%s: %d\r\n", FieldHeight, img.Height)
	fmt.Fprintf(w, "%s: 0\r\n\r\n", FieldPadding)
	w.Write(binaryMagic[:])
	w.Write(payload.Bytes())
	io.WriteString(w, "\r\n"+EndSentinel+";\r\n")

	// bufio.Writer keeps the first write error.
	_, err = w.Write(nil)
	return err
}

func elementTypeFor(k Kind) (ElementType, error) {
	switch k {
	case KindU8:
		return Unsigned8BitInteger, nil
	case KindI8:
		return Signed8BitInteger, nil
	case KindU16:
		return Unsigned16BitInteger, nil
	case KindI16:
		return Signed16BitInteger, nil
	case KindU32:
		return Unsigned32BitInteger, nil
	case KindI32:
		return Signed32BitInteger, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, k)
}

func encodePixels(w io.Writer, pixels Pixels) error {
	var err error
	switch px := pixels.(type) {
	case Buffer[uint8]:
		_, err = EncodeByteOffset[uint8](w, px)
	case Buffer[int8]:
		_, err = EncodeByteOffset[int8](w, px)
	case Buffer[uint16]:
		_, err = EncodeByteOffset[uint16](w, px)
	case Buffer[int16]:
		_, err = EncodeByteOffset[int16](w, px)
	case Buffer[uint32]:
		_, err = EncodeByteOffset[uint32](w, px)
	case Buffer[int32]:
		_, err = EncodeByteOffset[int32](w, px)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, pixels.Kind())
	}
	return err
}
