// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package s3store implements an object store on an S3 bucket whose objects
// may be transitioned to Glacier.
package s3store

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/objectstore"
)

var (
	// Error is the default s3store error class.
	Error = errs.Class("s3store")

	mon = monkit.Package()
)

var _ objectstore.Store = (*Store)(nil)
var _ objectstore.LifecycleManager = (*Store)(nil)

// Store implements objectstore.Store on an S3 bucket.
type Store struct {
	log    *zap.Logger
	client *minio.Client
	bucket string

	now func() time.Time
}

// Open connects to the configured endpoint and makes sure the bucket exists.
func Open(ctx context.Context, log *zap.Logger, config Config) (_ *Store, err error) {
	defer mon.Task()(&ctx)(&err)

	if config.Endpoint == "" || config.Bucket == "" {
		return nil, Error.New("endpoint and bucket are required")
	}
	creds, err := config.Resolve()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: config.Secure,
		Region: config.Region,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, Error.New("unable to reach bucket %q: %v", config.Bucket, err)
	}
	if !exists {
		log.Info("creating bucket", zap.String("bucket", config.Bucket))
		err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{Region: config.Region})
		if err != nil {
			return nil, Error.Wrap(err)
		}
	}

	return &Store{
		log:    log,
		client: client,
		bucket: config.Bucket,
		now:    time.Now,
	}, nil
}

// Exists implements objectstore.Store.
func (store *Store) Exists(ctx context.Context, key string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	_, err = store.client.StatObject(ctx, store.bucket, key, minio.StatObjectOptions{})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

// Put implements objectstore.Store. The existence check and the upload are
// separate requests; racing writers of the same key write the same content.
func (store *Store) Put(ctx context.Context, key string, r io.Reader, size int64, overwrite bool) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	if !overwrite {
		exists, err := store.Exists(ctx, key)
		if err != nil || exists {
			return false, err
		}
	}

	info, err := store.client.PutObject(ctx, store.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return false, Error.Wrap(err)
	}
	if info.Size != size {
		return false, Error.New("%q: uploaded %d bytes, expected %d", key, info.Size, size)
	}
	return true, nil
}

// Get implements objectstore.Store.
func (store *Store) Get(ctx context.Context, key string) (_ io.ReadCloser, err error) {
	defer mon.Task()(&ctx)(&err)

	stat, err := store.client.StatObject(ctx, store.bucket, key, minio.StatObjectOptions{})
	if isNotFound(err) {
		return nil, objectstore.ErrNotFound.New("%q", key)
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if store.toObjectInfo(stat).Frozen() {
		return nil, objectstore.ErrFrozen.New("%q", key)
	}

	object, err := store.client.GetObject(ctx, store.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return object, nil
}

// Delete implements objectstore.Store.
func (store *Store) Delete(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)
	err = store.client.RemoveObject(ctx, store.bucket, key, minio.RemoveObjectOptions{})
	if isNotFound(err) {
		return objectstore.ErrNotFound.New("%q", key)
	}
	return Error.Wrap(err)
}

// List implements objectstore.Store. Cold objects are stat'ed individually
// because listings do not carry the restore state.
func (store *Store) List(ctx context.Context, opts objectstore.ListOptions, fn func(objectstore.ObjectInfo) error) (err error) {
	defer mon.Task()(&ctx)(&err)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range store.client.ListObjects(ctx, store.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		StartAfter: opts.StartAfter,
		Recursive:  true,
	}) {
		if object.Err != nil {
			return Error.Wrap(object.Err)
		}

		if objectstore.IsCold(object.StorageClass) && object.Restore == nil {
			stat, err := store.client.StatObject(ctx, store.bucket, object.Key, minio.StatObjectOptions{})
			if err != nil {
				return Error.Wrap(err)
			}
			object.Restore = stat.Restore
		}

		if err := fn(store.toObjectInfo(object)); err != nil {
			return err
		}
	}
	return nil
}

// RequestRestore implements objectstore.Store.
func (store *Store) RequestRestore(ctx context.Context, key string, days int, tier objectstore.RetrievalTier) (err error) {
	defer mon.Task()(&ctx)(&err)

	var request minio.RestoreRequest
	request.SetDays(days)
	request.SetGlacierJobParameters(minio.GlacierJobParameters{Tier: minio.TierType(tier)})

	err = store.client.RestoreObject(ctx, store.bucket, key, "", request)
	if minio.ToErrorResponse(err).Code == "RestoreAlreadyInProgress" {
		store.log.Debug("restore already in progress", zap.String("key", key))
		return nil
	}
	if isNotFound(err) {
		return objectstore.ErrNotFound.New("%q", key)
	}
	return Error.Wrap(err)
}

// EnsureTransition implements objectstore.LifecycleManager.
func (store *Store) EnsureTransition(ctx context.Context, ruleID, prefix string, days int) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	config, err := store.client.GetBucketLifecycle(ctx, store.bucket)
	if minio.ToErrorResponse(err).Code == "NoSuchLifecycleConfiguration" {
		config, err = lifecycle.NewConfiguration(), nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}

	for _, rule := range config.Rules {
		if rule.ID == ruleID {
			return false, nil
		}
	}

	config.Rules = append(config.Rules, lifecycle.Rule{
		ID:         ruleID,
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: prefix},
		Transition: lifecycle.Transition{
			Days:         lifecycle.ExpirationDays(days),
			StorageClass: objectstore.ClassGlacier,
		},
	})
	if err := store.client.SetBucketLifecycle(ctx, store.bucket, config); err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

func (store *Store) toObjectInfo(object minio.ObjectInfo) objectstore.ObjectInfo {
	status, expiry := restoreStatus(object.Restore, store.now())
	class := object.StorageClass
	if class == "" {
		class = objectstore.ClassStandard
	}
	return objectstore.ObjectInfo{
		Key:           object.Key,
		Size:          object.Size,
		StorageClass:  class,
		Restore:       status,
		RestoreExpiry: expiry,
	}
}

// restoreStatus converts the x-amz-restore state of an object.
func restoreStatus(restore *minio.RestoreInfo, now time.Time) (objectstore.RestoreStatus, time.Time) {
	switch {
	case restore == nil:
		return objectstore.RestoreNone, time.Time{}
	case restore.OngoingRestore:
		return objectstore.RestoreOngoing, time.Time{}
	case restore.ExpiryTime.After(now):
		return objectstore.RestoreDone, restore.ExpiryTime
	default:
		return objectstore.RestoreNone, time.Time{}
	}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	response := minio.ToErrorResponse(err)
	return response.StatusCode == http.StatusNotFound ||
		response.Code == "NoSuchKey" ||
		response.Code == "NotFound"
}
