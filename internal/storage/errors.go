package storage

import "github.com/dukerupert/marketplace/internal/domain"

var (
	ErrR2AccountIDRequired   = domain.Errorf(domain.EINVALID, "storage.new", "R2 account ID is required")
	ErrR2CredentialsRequired = domain.Errorf(domain.EINVALID, "storage.new", "R2 access key and secret are required")
	ErrBucketRequired        = domain.Errorf(domain.EINVALID, "storage.new", "bucket name is required")
)

// ErrInvalidKey rejects keys that are empty, absolute or escape the root.
func ErrInvalidKey(key string) error {
	return domain.Errorf(domain.EINVALID, "storage", "invalid storage key: %q", key)
}

func ErrUnknownProvider(provider string) error {
	return domain.Errorf(domain.EINVALID, "storage.new", "unknown storage provider: %s", provider)
}
