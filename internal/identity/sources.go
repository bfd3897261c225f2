package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// objectKeys are localStorage entries holding a JSON object with an id field.
var objectKeys = []struct {
	key    string
	fields []string
}{
	{"user", []string{"_id", "id"}},
	{"admin", []string{"_id"}},
	{"userData", []string{"_id"}},
}

// plainKeys hold the id as a bare string.
var plainKeys = []string{"userLoginId", "adminId", "userId"}

// tokenKeys hold a JWT whose claims may carry the id.
var tokenKeys = []string{"token", "accessToken"}

// tokenClaims are checked in order inside a JWT.
var tokenClaims = []string{"_id", "id", "userId", "sub"}

// EnvSource reads the admin id from an environment variable.
type EnvSource struct {
	Var string
}

func (s EnvSource) Name() string { return "env:" + s.Var }

func (s EnvSource) Lookup(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(s.Var)), nil
}

// StaticSource returns a fixed id (configured ADMIN_ID).
type StaticSource string

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) Lookup(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// SessionFileSource reads an exported localStorage dump: a JSON object whose
// values are either strings (as localStorage stores them) or inline JSON.
type SessionFileSource struct {
	Path string
}

func (s SessionFileSource) Name() string { return "session-file:" + s.Path }

func (s SessionFileSource) Lookup(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return "", fmt.Errorf("failed to parse session file: %w", err)
	}

	storage := make(map[string]string, len(entries))
	for k, v := range entries {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			storage[k] = str
		} else {
			storage[k] = string(v)
		}
	}
	return FromStorage(storage), nil
}

// StorageReader is satisfied by browser.Session.
type StorageReader interface {
	LocalStorage(ctx context.Context) (map[string]string, error)
}

// BrowserSource reads the live dashboard tab's localStorage.
type BrowserSource struct {
	Reader StorageReader
}

func (s BrowserSource) Name() string { return "browser" }

func (s BrowserSource) Lookup(ctx context.Context) (string, error) {
	storage, err := s.Reader.LocalStorage(ctx)
	if err != nil {
		return "", err
	}
	return FromStorage(storage), nil
}

// FromStorage extracts the admin id from a localStorage snapshot.
//
// Lookup order:
//  1. user._id, user.id, admin._id, userData._id
//  2. userLoginId, adminId, userId
//  3. claims _id, id, userId, sub of the JWT in token / accessToken
//
// Only values that are valid ObjectIds are returned; "" when none is.
func FromStorage(storage map[string]string) string {
	for _, ok := range objectKeys {
		raw, found := storage[ok.key]
		if !found || raw == "" {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			continue
		}
		for _, field := range ok.fields {
			if id := objectID(obj[field]); id != "" {
				return id
			}
		}
	}

	for _, key := range plainKeys {
		if id := objectID(unquote(storage[key])); id != "" {
			return id
		}
	}

	for _, key := range tokenKeys {
		if id := fromToken(unquote(storage[key])); id != "" {
			return id
		}
	}

	return ""
}

// fromToken reads the id claim of a JWT without verifying its signature;
// the token is only used to find out who is signed in, never to grant access.
func fromToken(token string) string {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, name := range tokenClaims {
		if id := objectID(claims[name]); id != "" {
			return id
		}
	}
	return ""
}

func objectID(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if !primitive.IsValidObjectID(s) {
		return ""
	}
	return s
}

// unquote strips the JSON quoting some dashboards apply when storing
// strings with JSON.stringify.
func unquote(s string) string {
	var str string
	if err := json.Unmarshal([]byte(s), &str); err == nil {
		return str
	}
	return s
}
