// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package s3store

import (
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Credential resolution strategies.
const (
	// CredentialsExplicit uses the access and secret key from the config.
	CredentialsExplicit = "explicit"
	// CredentialsProfile reads a named profile from a shared credentials file.
	CredentialsProfile = "profile"
	// CredentialsEnv uses the environment, falling back to the default profile.
	CredentialsEnv = "env"
)

// Config configures the connection to the bucket.
type Config struct {
	Endpoint string `help:"S3 compatible endpoint" default:"s3.amazonaws.com"`
	Bucket   string `help:"bucket the archive is kept in" default:""`
	Region   string `help:"bucket region" default:""`
	Secure   bool   `help:"use https to connect to the endpoint" default:"true"`

	Credentials     string `help:"how to resolve credentials: explicit, profile or env" default:"env"`
	AccessKey       string `help:"access key for explicit credentials" default:""`
	SecretKey       string `help:"secret key for explicit credentials" default:""`
	SessionToken    string `help:"session token for explicit credentials" default:""`
	Profile         string `help:"profile name for profile credentials" default:"default"`
	CredentialsFile string `help:"shared credentials file, empty for ~/.aws/credentials" default:""`
}

// Verify checks that the config is complete.
func (config Config) Verify() error {
	if config.Endpoint == "" {
		return Error.New("endpoint is required")
	}
	if config.Bucket == "" {
		return Error.New("bucket is required")
	}
	_, err := config.Resolve()
	return err
}

// Resolve returns the credentials selected by the config.
func (config Config) Resolve() (*credentials.Credentials, error) {
	switch config.Credentials {
	case CredentialsExplicit:
		if config.AccessKey == "" || config.SecretKey == "" {
			return nil, Error.New("explicit credentials need an access key and a secret key")
		}
		return credentials.NewStaticV4(config.AccessKey, config.SecretKey, config.SessionToken), nil
	case CredentialsProfile:
		return credentials.NewFileAWSCredentials(config.CredentialsFile, config.Profile), nil
	case CredentialsEnv, "":
		return credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{Filename: config.CredentialsFile},
		}), nil
	default:
		return nil, Error.New("unknown credential strategy %q", config.Credentials)
	}
}
