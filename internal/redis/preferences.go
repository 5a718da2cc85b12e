package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"billpay/internal/domain"
)

const (
	rememberPrefix = "remember:"

	// RememberTTL bounds how long an unused device keeps its remembered inputs.
	RememberTTL = 90 * 24 * time.Hour
)

// Hash fields of a remembered-input entry.
const (
	fieldPhone       = "phone"
	fieldCountryCode = "country_code"
	fieldProvider    = "provider"
	fieldEmail       = "email"
)

// PreferenceStore keeps each device's remembered inputs in a Redis hash.
type PreferenceStore struct {
	client *redis.Client
}

// NewPreferenceStore creates a new PreferenceStore.
func NewPreferenceStore(client *redis.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

// Load returns the remembered inputs of deviceID. An unknown device yields empty fields.
func (s *PreferenceStore) Load(ctx context.Context, deviceID string) (domain.RememberedFields, error) {
	values, err := s.client.HGetAll(ctx, rememberPrefix+deviceID).Result()
	if err != nil {
		return domain.RememberedFields{}, err
	}
	return domain.RememberedFields{
		Phone:       values[fieldPhone],
		CountryCode: values[fieldCountryCode],
		Provider:    values[fieldProvider],
		Email:       values[fieldEmail],
	}, nil
}

// Save replaces the remembered inputs of deviceID. Empty fields are removed.
func (s *PreferenceStore) Save(ctx context.Context, deviceID string, fields domain.RememberedFields) error {
	key := rememberPrefix + deviceID
	set := make(map[string]any, 4)
	var drop []string
	for name, value := range map[string]string{
		fieldPhone:       fields.Phone,
		fieldCountryCode: fields.CountryCode,
		fieldProvider:    fields.Provider,
		fieldEmail:       fields.Email,
	} {
		if value == "" {
			drop = append(drop, name)
			continue
		}
		set[name] = value
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(drop) > 0 {
			pipe.HDel(ctx, key, drop...)
		}
		if len(set) > 0 {
			pipe.HSet(ctx, key, set)
			pipe.Expire(ctx, key, RememberTTL)
		}
		return nil
	})
	return err
}

// Forget removes everything remembered for deviceID.
func (s *PreferenceStore) Forget(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, rememberPrefix+deviceID).Err()
}
