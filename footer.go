package containerfs

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// Magic is the fixed 4-byte tag that terminates every container file.
	Magic = "CPAK"

	// CurrentFormatVersion is the format version written into new footers.
	CurrentFormatVersion = "1.0.0"

	// MaxSupportedVersion is the highest format major version this engine
	// can open.
	MaxSupportedVersion = 1

	// MinContainerSize is the smallest possible valid container: 4-byte
	// magic, 4-byte footer length, and a minimal JSON footer.
	MinContainerSize = 28

	// trailerSize is the fixed tail: footer length (4) + magic (4).
	trailerSize = 8
)

// Footer is the container's metadata trailer, serialized as compact JSON
// immediately before the fixed 8-byte tail. The encryption fields (salt,
// IV, password hash) are all present or all absent.
type Footer struct {
	Version          string    `json:"version"`
	IsEncrypted      bool      `json:"isEncrypted"`
	Salt             string    `json:"salt,omitempty"`
	IV               string    `json:"iv,omitempty"`
	PasswordHash     string    `json:"passwordHash,omitempty"`
	CompanyName      string    `json:"companyName"`
	Accountants      []string  `json:"accountants"`
	CreatedAt        time.Time `json:"createdAt"`
	ModifiedAt       time.Time `json:"modifiedAt"`
	BiometricEnabled bool      `json:"biometricEnabled"`
}

// IsVersionCompatible reports whether this engine can open a container with
// the footer's format version. The major version is the leading integer
// before the first dot; an unparsable version is incompatible. Callers must
// treat a false result as a hard gate before any decryption or
// decompression.
func (f *Footer) IsVersionCompatible() bool {
	v := f.Version
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	major, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	return major >= 0 && major <= MaxSupportedVersion
}

// Validate checks the footer's structural invariants.
func (f *Footer) Validate() error {
	present := 0
	for _, field := range []string{f.Salt, f.IV, f.PasswordHash} {
		if field != "" {
			present++
		}
	}
	if present != 0 && present != 3 {
		return &ValidationError{
			Field:   "footer",
			Message: "salt, iv and passwordHash must be all present or all absent",
		}
	}
	if f.IsEncrypted && present == 0 {
		return &ValidationError{
			Field:   "footer",
			Message: "encrypted container is missing salt, iv and passwordHash",
		}
	}
	if !f.IsEncrypted && present != 0 {
		return &ValidationError{
			Field:   "footer",
			Message: "unencrypted container carries encryption parameters",
		}
	}
	return nil
}

// SetEncryptionParams records the encryption triple, base64-encoded.
func (f *Footer) SetEncryptionParams(salt, iv, passwordHash []byte) {
	f.IsEncrypted = true
	f.Salt = base64.StdEncoding.EncodeToString(salt)
	f.IV = base64.StdEncoding.EncodeToString(iv)
	f.PasswordHash = base64.StdEncoding.EncodeToString(passwordHash)
}

// EncryptionParams decodes the stored encryption triple.
func (f *Footer) EncryptionParams() (salt, iv, passwordHash []byte, err error) {
	salt, err = base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	iv, err = base64.StdEncoding.DecodeString(f.IV)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode iv: %w", err)
	}
	passwordHash, err = base64.StdEncoding.DecodeString(f.PasswordHash)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode password hash: %w", err)
	}
	return salt, iv, passwordHash, nil
}

// readTrailer locates the footer from the end of the stream. ok is false
// when the stream is structurally not a container (too short, bad magic,
// footer length out of bounds); err reports I/O failures only.
func readTrailer(rs io.ReadSeeker) (total, footerLen int64, ok bool, err error) {
	total, err = rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, false, NewIOError("seek", "", err)
	}
	if total < MinContainerSize {
		return total, 0, false, nil
	}

	if _, err = rs.Seek(total-trailerSize, io.SeekStart); err != nil {
		return total, 0, false, NewIOError("seek", "", err)
	}

	var trailer [trailerSize]byte
	if _, err = io.ReadFull(rs, trailer[:]); err != nil {
		return total, 0, false, NewIOError("read", "", err)
	}

	if string(trailer[4:]) != Magic {
		return total, 0, false, nil
	}

	footerLen = int64(binary.LittleEndian.Uint32(trailer[:4]))
	if footerLen <= 0 || footerLen > total-trailerSize {
		return total, 0, false, nil
	}

	return total, footerLen, true, nil
}

// ReadFooter parses the footer from a seekable container stream. It
// returns (nil, nil) — absence, not failure — when the stream is not a
// structurally valid container: shorter than MinContainerSize, wrong magic,
// footer length out of bounds, or unparsable footer JSON. I/O errors are
// returned as errors.
func ReadFooter(rs io.ReadSeeker) (*Footer, error) {
	total, footerLen, ok, err := readTrailer(rs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if _, err := rs.Seek(total-trailerSize-footerLen, io.SeekStart); err != nil {
		return nil, NewIOError("seek", "", err)
	}

	buf := make([]byte, footerLen)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return nil, NewIOError("read", "", err)
	}

	var footer Footer
	if err := json.Unmarshal(buf, &footer); err != nil {
		return nil, nil
	}
	return &footer, nil
}

// WriteFooter serializes the footer as compact JSON and appends it,
// followed by the 4-byte little-endian footer length and the magic, at the
// writer's current position. The caller is responsible for positioning the
// writer at the end of the content first.
func WriteFooter(w io.Writer, f *Footer) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to serialize footer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(data)))
	if _, err := w.Write(length[:]); err != nil {
		return fmt.Errorf("failed to write footer length: %w", err)
	}

	if _, err := io.WriteString(w, Magic); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}
	return nil
}

// ContentLength returns the number of content bytes preceding the footer,
// or -1 when the stream is not a structurally valid container.
func ContentLength(rs io.ReadSeeker) int64 {
	total, footerLen, ok, err := readTrailer(rs)
	if err != nil || !ok {
		return -1
	}
	return total - footerLen - trailerSize
}

// ReadContent copies exactly the content bytes — everything before the
// footer — from the container stream to dst, in bounded chunks that respect
// cancellation. It never reads past the content boundary.
func ReadContent(ctx context.Context, rs io.ReadSeeker, dst io.Writer) error {
	total, footerLen, ok, err := readTrailer(rs)
	if err != nil {
		return err
	}
	if !ok {
		return NewFormatError("", "not a valid container stream")
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return NewIOError("seek", "", err)
	}

	contentLen := total - footerLen - trailerSize
	n, err := copyContext(ctx, dst, io.LimitReader(rs, contentLen))
	if err != nil {
		return err
	}
	if n != contentLen {
		return NewIOError("read", "", fmt.Errorf("short content: read %d of %d bytes", n, contentLen))
	}
	return nil
}
