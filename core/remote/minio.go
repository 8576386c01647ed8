package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
)

// maxCopySize is the largest object one server-side CopyObject accepts.
// Bigger objects are copied part by part with ComposeObject.
const maxCopySize = 5 << 30

// MinioStore keeps the remote tree in one bucket.
type MinioStore struct {
	client storage.Client
	bucket string
	fs     afero.Fs
}

// NewMinioStore creates a Store over client. fs is the local filesystem used by Put and Get.
func NewMinioStore(client storage.Client, bucket string, fs afero.Fs) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, fs: fs}
}

func objectKey(p string) string {
	return strings.TrimPrefix(Clean(p), "/")
}

func dirKey(p string) string {
	k := objectKey(p)
	if k == "" {
		return ""
	}
	return k + "/"
}

func keyPath(key string) string {
	return Clean(strings.TrimSuffix(key, "/"))
}

func unavailable(op, p string, err error) error {
	if storage.IsNotFound(err) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, op, p)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, p, err)
}

func (s *MinioStore) statKey(ctx context.Context, key string) (minio.ObjectInfo, bool, error) {
	if key == "" {
		return minio.ObjectInfo{}, false, nil
	}
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return minio.ObjectInfo{}, false, nil
		}
		return minio.ObjectInfo{}, false, err
	}
	return info, true, nil
}

// isDir reports whether p has a marker object or any key below it.
func (s *MinioStore) isDir(ctx context.Context, p string) (bool, error) {
	// Leaving the listing early must stop the producer goroutine.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prefix := dirKey(p)
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: false, MaxKeys: 1}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return false, obj.Err
		}
		return true, nil
	}
	return false, nil
}

// Exists implements Store.
func (s *MinioStore) Exists(ctx context.Context, p string) (bool, error) {
	_, ok, err := s.statKey(ctx, objectKey(p))
	if err != nil {
		return false, unavailable("exists", p, err)
	}
	if ok {
		return true, nil
	}

	dir, err := s.isDir(ctx, p)
	if err != nil {
		return false, unavailable("exists", p, err)
	}
	return dir, nil
}

// Mkdir implements Store.
func (s *MinioStore) Mkdir(ctx context.Context, p string) error {
	_, err := s.client.PutObject(ctx, s.bucket, dirKey(p), bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
	if err != nil {
		return unavailable("mkdir", p, err)
	}
	return nil
}

// Put implements Store.
func (s *MinioStore) Put(ctx context.Context, localPath, p string) error {
	f, err := s.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, objectKey(p), f, fi.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return unavailable("put", p, err)
	}
	return nil
}

// Get implements Store.
func (s *MinioStore) Get(ctx context.Context, p, localPath string) error {
	r, err := s.Open(ctx, p)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := s.fs.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
	}
	f, err := s.fs.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return unavailable("get", p, err)
	}
	return nil
}

// listAll returns p's own object, its marker and every object below it.
func (s *MinioStore) listAll(ctx context.Context, p string) ([]minio.ObjectInfo, error) {
	var objs []minio.ObjectInfo

	key := objectKey(p)
	if info, ok, err := s.statKey(ctx, key); err != nil {
		return nil, err
	} else if ok {
		info.Key = key
		objs = append(objs, info)
	}

	opts := minio.ListObjectsOptions{Prefix: dirKey(p), Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

func keysOf(objs []minio.ObjectInfo) []string {
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return keys
}

func (s *MinioStore) removeKeys(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- minio.ObjectInfo{Key: k}
	}
	close(objectsCh)

	var errs []string
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", rerr.ObjectName, rerr.Err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("batch delete had %d errors: %v", len(errs), errs)
	}
	return nil
}

// Rm implements Store.
func (s *MinioStore) Rm(ctx context.Context, p string) error {
	objs, err := s.listAll(ctx, p)
	if err != nil {
		return unavailable("rm", p, err)
	}
	if len(objs) == 0 {
		return fmt.Errorf("%w: rm %s", ErrNotFound, p)
	}
	if err := s.removeKeys(ctx, keysOf(objs)); err != nil {
		return unavailable("rm", p, err)
	}
	return nil
}

// Mv implements Store. Object stores have no rename: every key is copied
// server-side, then the originals are removed. A failed copy removes the
// copies already written and leaves the source untouched.
func (s *MinioStore) Mv(ctx context.Context, src, dst string) error {
	objs, err := s.listAll(ctx, src)
	if err != nil {
		return unavailable("mv", src, err)
	}
	if len(objs) == 0 {
		return fmt.Errorf("%w: mv %s", ErrNotFound, src)
	}

	srcKey, dstKey := objectKey(src), objectKey(dst)
	var written []string
	for _, obj := range objs {
		target := dstKey + strings.TrimPrefix(obj.Key, srcKey)
		if err := s.copyObject(ctx, obj, target); err != nil {
			if len(written) > 0 {
				if rerr := s.removeKeys(ctx, written); rerr != nil {
					err = errors.Join(err, fmt.Errorf("cleanup: %w", rerr))
				}
			}
			return unavailable("mv", src, err)
		}
		written = append(written, target)
	}

	if err := s.removeKeys(ctx, keysOf(objs)); err != nil {
		return unavailable("mv", src, err)
	}
	return nil
}

func (s *MinioStore) copyObject(ctx context.Context, obj minio.ObjectInfo, target string) error {
	dst := minio.CopyDestOptions{Bucket: s.bucket, Object: target}
	src := minio.CopySrcOptions{Bucket: s.bucket, Object: obj.Key}
	if obj.Size > maxCopySize {
		_, err := s.client.ComposeObject(ctx, dst, src)
		return err
	}
	_, err := s.client.CopyObject(ctx, dst, src)
	return err
}

// Ls implements Store.
func (s *MinioStore) Ls(ctx context.Context, p string) ([]Info, error) {
	prefix := dirKey(p)
	var out []Info
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: false}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, unavailable("ls", p, obj.Err)
		}
		if obj.Key == prefix {
			continue // the directory's own marker
		}
		out = append(out, Info{
			Path:  keyPath(obj.Key),
			IsDir: strings.HasSuffix(obj.Key, "/"),
			Size:  obj.Size,
		})
	}
	return out, nil
}

// Walk implements Store.
func (s *MinioStore) Walk(ctx context.Context, p string) ([]WalkEntry, error) {
	prefix := dirKey(p)
	b := newWalkBuilder(Clean(p))
	found := false

	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, unavailable("walk", p, obj.Err)
		}
		found = true
		rel := strings.TrimPrefix(obj.Key, prefix)
		b.add(rel, strings.HasSuffix(rel, "/"))
	}
	if !found {
		return nil, nil
	}
	return b.result(), nil
}

// Size implements Store.
func (s *MinioStore) Size(ctx context.Context, p string) (int64, error) {
	info, ok, err := s.statKey(ctx, objectKey(p))
	if err != nil {
		return 0, unavailable("size", p, err)
	}
	if ok {
		return info.Size, nil
	}

	dir, err := s.isDir(ctx, p)
	if err != nil {
		return 0, unavailable("size", p, err)
	}
	if dir {
		return 0, nil
	}
	return 0, fmt.Errorf("%w: size %s", ErrNotFound, p)
}

// Checksum implements Store.
func (s *MinioStore) Checksum(ctx context.Context, p string, class classify.Classification) (*string, error) {
	if class == classify.Directory {
		return nil, nil
	}

	r, err := s.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sum, err := checksum.Reader(r)
	if err != nil {
		return nil, unavailable("checksum", p, err)
	}
	return &sum, nil
}

// Open implements Store.
func (s *MinioStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	r, err := s.client.GetObject(ctx, s.bucket, objectKey(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, unavailable("get", p, err)
	}
	return r, nil
}
