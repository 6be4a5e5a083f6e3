package tokenstore

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/cjl-github/chiwen/internal/log"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
	saltLength       = 16
)

// entry is one stored value. Value is base64 AES-GCM ciphertext when
// Encrypted is set, the raw token otherwise.
type entry struct {
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// document is the on-disk layout of the credentials file.
type document struct {
	Salt    string           `json:"salt,omitempty"`
	Entries map[string]entry `json:"entries"`
}

// FileStore keeps the token in a JSON file readable only by the owner.
// With a passphrase the value is encrypted with AES-GCM under a key derived
// by PBKDF2 from the passphrase and a per-file random salt.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase string
	logger     *log.Logger

	// derived caches the key for the salt it was derived from.
	derivedSalt string
	derivedKey  []byte
}

// NewFileStore creates a store backed by the file at path. The file and its
// directory are created on first Write.
func NewFileStore(path, passphrase string, logger *log.Logger) *FileStore {
	return &FileStore{
		path:       path,
		passphrase: passphrase,
		logger:     log.OrDiscard(logger).With("component", "tokenstore", "path", path),
	}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Write stores token, replacing any previous one.
func (s *FileStore) Write(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).Warn("discarding unreadable credentials file")
	}
	if doc == nil {
		doc = &document{}
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]entry)
	}

	e := entry{Value: token, UpdatedAt: time.Now().UTC()}
	if s.passphrase != "" {
		if doc.Salt == "" {
			salt := make([]byte, saltLength)
			if _, err := io.ReadFull(rand.Reader, salt); err != nil {
				s.logger.WithError(err).Warn("token not persisted")
				return
			}
			doc.Salt = base64.StdEncoding.EncodeToString(salt)
		}
		sealed, err := s.encrypt(doc.Salt, token)
		if err != nil {
			s.logger.WithError(err).Warn("token not persisted")
			return
		}
		e.Value = sealed
		e.Encrypted = true
	}
	doc.Entries[TokenKey] = e

	if err := s.save(doc); err != nil {
		s.logger.WithError(err).Warn("token not persisted")
		return
	}
	s.logger.Debug("token persisted", "token_fp", Fingerprint(token))
}

// Read returns the stored token. Any failure reads as absent.
func (s *FileStore) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("credentials file unreadable, continuing anonymous")
		}
		return "", false
	}

	e, ok := doc.Entries[TokenKey]
	if !ok || e.Value == "" {
		return "", false
	}
	if !e.Encrypted {
		return e.Value, true
	}
	if s.passphrase == "" {
		s.logger.Warn("stored token is encrypted but no storage.passphrase is configured")
		return "", false
	}

	token, err := s.decrypt(doc.Salt, e.Value)
	if err != nil {
		s.logger.WithError(err).Warn("stored token could not be decrypted, continuing anonymous")
		return "", false
	}
	return token, token != ""
}

// Clear removes the stored token, and the file once it holds nothing else.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			s.removeFile()
		}
		return
	}

	delete(doc.Entries, TokenKey)
	if len(doc.Entries) == 0 {
		s.removeFile()
		return
	}
	if err := s.save(doc); err != nil {
		s.logger.WithError(err).Warn("token not cleared")
	}
}

func (s *FileStore) removeFile() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).Warn("token not cleared")
	}
}

func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// save writes doc to a temporary file and renames it into place so a crash
// never leaves a half-written slot.
func (s *FileStore) save(doc *document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) key(salt string) ([]byte, error) {
	if s.derivedKey != nil && s.derivedSalt == salt {
		return s.derivedKey, nil
	}
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	s.derivedKey = pbkdf2.Key([]byte(s.passphrase), raw, pbkdf2Iterations, keyLength, sha256.New)
	s.derivedSalt = salt
	return s.derivedKey, nil
}

func (s *FileStore) gcm(salt string) (cipher.AEAD, error) {
	key, err := s.key(salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *FileStore) encrypt(salt, plaintext string) (string, error) {
	gcm, err := s.gcm(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *FileStore) decrypt(salt, ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	gcm, err := s.gcm(salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
