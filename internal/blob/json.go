package blob

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// GetJSON fetches key and unmarshals it into v. Missing keys surface the
// store's fault.ErrNotFound; malformed bodies surface as a plain wrap so the
// caller decides whether to skip or escalate.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return eris.Wrapf(err, "blob: decode %s", key)
	}
	return nil
}

// PutJSON marshals v and writes it at key with the JSON content type.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "blob: encode %s", key)
	}
	return s.Put(ctx, key, b, ContentTypeJSON)
}
