package containerfs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
)

type sessionState uint8

const (
	stateClosed sessionState = iota
	stateOpen
)

// Container is a single-session orchestrator over one container file. The
// session moves Closed -> (Create|Open) -> Open -> Save* -> Close ->
// Closed; no other transitions are valid. While open, the session owns a
// scratch directory holding the extracted document tree.
//
// The engine assumes a single logical writer per container path; callers
// are responsible for higher-level locking if multi-process access is
// possible.
type Container struct {
	fs      absfs.FileSystem
	config  *Config
	enc     Encryptor
	kdf     KeyDeriver
	state   sessionState
	tempDir string
	name    string
}

// New creates a container session over the given filesystem.
func New(fsys absfs.FileSystem, config *Config) (*Container, error) {
	if fsys == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config = config.withDefaults()

	enc := config.Encryptor
	if enc == nil {
		var err error
		enc, err = NewAEADEncryptor(config.Cipher, config.KDF)
		if err != nil {
			return nil, err
		}
	}

	return &Container{
		fs:     fsys,
		config: config,
		enc:    enc,
		kdf:    config.KDF,
	}, nil
}

// TempDir returns the session's scratch directory, or "" when no container
// is open.
func (c *Container) TempDir() string {
	return c.tempDir
}

// Name returns the display name of the open container.
func (c *Container) Name() string {
	return c.name
}

// Create builds a new container at path with an empty default document set:
// one JSON file per configured collection plus an empty attachments
// directory. The container is saved without a password. It returns the
// scratch directory holding the extracted tree, and leaves the session
// open.
func (c *Container) Create(ctx context.Context, containerPath, name string) (string, error) {
	if c.state != stateClosed {
		return "", ErrSessionOpen
	}

	tempDir, err := c.makeScratchDir()
	if err != nil {
		return "", err
	}

	for _, collection := range c.config.Collections {
		file := path.Join(tempDir, collection+".json")
		if err := c.writeFile(file, []byte("[]")); err != nil {
			c.discardScratch(tempDir)
			return "", err
		}
	}
	if err := c.fs.MkdirAll(fromSlash(c.fs, path.Join(tempDir, "attachments")), 0755); err != nil {
		c.discardScratch(tempDir)
		return "", NewIOError("mkdir", tempDir, err)
	}

	c.state = stateOpen
	c.tempDir = tempDir
	c.name = name

	if err := c.Save(ctx, containerPath, ""); err != nil {
		c.discardScratch(tempDir)
		c.state = stateClosed
		c.tempDir = ""
		c.name = ""
		return "", err
	}

	return tempDir, nil
}

// Open reads the container at path, verifies the password when one is
// required, and extracts the document tree into a fresh scratch directory,
// which it returns.
//
// Failure modes: a structurally invalid file yields a FormatError; an
// unsupported format version yields ErrUnsupportedVersion; an encrypted
// container without a password yields ErrPasswordRequired; a password that
// fails verification yields ErrWrongPassword before any decryption is
// attempted; tampered or corrupted ciphertext yields an
// AuthenticationError.
func (c *Container) Open(ctx context.Context, containerPath, password string) (string, error) {
	if c.state != stateClosed {
		return "", ErrSessionOpen
	}

	f, err := c.fs.Open(containerPath)
	if err != nil {
		return "", NewIOError("open", containerPath, err)
	}
	defer f.Close()

	footer, err := ReadFooter(f)
	if err != nil {
		return "", err
	}
	if footer == nil {
		return "", NewFormatError(containerPath, "not a container file (bad or missing footer)")
	}

	if !footer.IsVersionCompatible() {
		return "", fmt.Errorf("container format version %q: %w", footer.Version, ErrUnsupportedVersion)
	}
	if err := footer.Validate(); err != nil {
		return "", &FormatError{Path: containerPath, Message: "invalid footer", Err: err}
	}

	var salt, iv []byte
	if footer.IsEncrypted {
		if password == "" {
			return "", ErrPasswordRequired
		}

		var passwordHash []byte
		salt, iv, passwordHash, err = footer.EncryptionParams()
		if err != nil {
			return "", &FormatError{Path: containerPath, Message: "invalid encryption parameters", Err: err}
		}

		// Verify before touching any ciphertext.
		if !c.kdf.VerifyPassword([]byte(password), passwordHash, salt) {
			return "", ErrWrongPassword
		}
	}

	var content bytes.Buffer
	if err := ReadContent(ctx, f, &content); err != nil {
		return "", err
	}

	data := content.Bytes()
	if footer.IsEncrypted {
		data, err = c.enc.Decrypt(data, []byte(password), salt, iv)
		if err != nil {
			return "", err
		}
	}

	var archive bytes.Buffer
	if err := Decompress(&archive, bytes.NewReader(data)); err != nil {
		return "", &FormatError{Path: containerPath, Message: "invalid content stream", Err: err}
	}

	tempDir, err := c.makeScratchDir()
	if err != nil {
		return "", err
	}
	if err := ExtractArchive(ctx, c.fs, &archive, tempDir); err != nil {
		c.discardScratch(tempDir)
		return "", err
	}

	c.state = stateOpen
	c.tempDir = tempDir
	c.name = footer.CompanyName

	return tempDir, nil
}

// Save archives the session's scratch directory, compresses it, optionally
// encrypts it with a fresh salt and IV, and atomically replaces the
// container at path. Save may be called repeatedly while the session is
// open. When the target already exists and carries a readable footer, its
// CreatedAt is carried forward; every other footer field is rebuilt.
func (c *Container) Save(ctx context.Context, containerPath, password string) error {
	if c.state != stateOpen {
		return ErrSessionClosed
	}

	// Root name excluded so documents do not nest under the generated
	// scratch directory name.
	var tarBuf bytes.Buffer
	if err := ArchiveDirectory(ctx, c.fs, c.tempDir, false, &tarBuf); err != nil {
		return err
	}

	var compressed bytes.Buffer
	if err := Compress(&compressed, &tarBuf); err != nil {
		return err
	}
	content := compressed.Bytes()

	accountants := c.config.Accountants
	if accountants == nil {
		accountants = []string{}
	}

	now := time.Now().UTC()
	footer := &Footer{
		Version:          CurrentFormatVersion,
		CompanyName:      c.name,
		Accountants:      accountants,
		CreatedAt:        now,
		ModifiedAt:       now,
		BiometricEnabled: c.config.BiometricEnabled,
	}
	if prev := c.readExistingFooter(containerPath); prev != nil && !prev.CreatedAt.IsZero() {
		footer.CreatedAt = prev.CreatedAt
	}

	if password != "" {
		salt, err := generateSalt(c.config.Rand)
		if err != nil {
			return err
		}
		iv, err := generateNonce(c.config.Rand)
		if err != nil {
			return err
		}
		passwordHash, err := c.kdf.HashPassword([]byte(password), salt)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		content, err = c.enc.Encrypt(content, []byte(password), salt, iv)
		if err != nil {
			return err
		}
		footer.SetEncryptionParams(salt, iv, passwordHash)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return c.commit(containerPath, content, footer)
}

// commit stages the container in a temporary sibling file and renames it
// over the destination, so a cancelled or failed save never leaves a
// partial file visible as a complete container.
func (c *Container) commit(containerPath string, content []byte, footer *Footer) error {
	staging := containerPath + "." + uuid.NewString() + ".tmp"

	f, err := c.fs.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return NewIOError("create", staging, err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		c.fs.Remove(staging)
		return NewIOError("write", staging, err)
	}
	if err := WriteFooter(f, footer); err != nil {
		f.Close()
		c.fs.Remove(staging)
		return err
	}
	if err := f.Close(); err != nil {
		c.fs.Remove(staging)
		return NewIOError("close", staging, err)
	}

	if err := c.fs.Rename(staging, containerPath); err != nil {
		c.fs.Remove(staging)
		return NewIOError("rename", containerPath, err)
	}
	return nil
}

// Close deletes the session's scratch directory and returns the session to
// the Closed state. Cleanup is best-effort: deletion failures are
// swallowed, never surfaced.
func (c *Container) Close() error {
	if c.state == stateClosed {
		return nil
	}
	c.discardScratch(c.tempDir)
	c.state = stateClosed
	c.tempDir = ""
	c.name = ""
	return nil
}

// readExistingFooter returns the footer of an existing container at path,
// or nil when the file is missing or unreadable. Used only for CreatedAt
// carry-forward; failures are deliberately ignored.
func (c *Container) readExistingFooter(containerPath string) *Footer {
	f, err := c.fs.Open(containerPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	footer, err := ReadFooter(f)
	if err != nil {
		return nil
	}
	return footer
}

// makeScratchDir creates a fresh uniquely named scratch directory under the
// filesystem's temp root.
func (c *Container) makeScratchDir() (string, error) {
	dir := path.Join(toSlash(c.fs, c.fs.TempDir()), "containerfs-"+uuid.NewString())
	if err := c.fs.MkdirAll(fromSlash(c.fs, dir), 0700); err != nil {
		return "", NewIOError("mkdir", dir, err)
	}
	return dir, nil
}

// discardScratch removes a scratch directory, ignoring failures.
func (c *Container) discardScratch(dir string) {
	if dir == "" {
		return
	}
	c.fs.RemoveAll(fromSlash(c.fs, dir))
}

// writeFile writes data to a new file at the given slash path.
func (c *Container) writeFile(p string, data []byte) error {
	f, err := c.fs.OpenFile(fromSlash(c.fs, p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return NewIOError("create", p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return NewIOError("write", p, err)
	}
	if err := f.Close(); err != nil {
		return NewIOError("close", p, err)
	}
	return nil
}
