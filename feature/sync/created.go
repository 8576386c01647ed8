package sync

import (
	"context"
	"fmt"

	"mrbox/core/checksum"
	"mrbox/core/classify"

	"go.uber.org/zap"
)

func (e *Engine) created(ctx context.Context, local string, isDir bool) error {
	exists, localIsDir, err := e.ws.Stat(local)
	if err != nil {
		return err
	}
	remotePath, err := e.ws.ToRemote(local)
	if err != nil {
		return err
	}

	in := classify.Input{
		LocalPath:     local,
		ExistsLocally: exists,
		IsDir:         localIsDir,
		Threshold:     e.ws.Threshold,
		RemoteType:    classify.File,
	}
	if isDir {
		in.RemoteType = classify.Directory
	}
	if !exists {
		// Only the threshold rule needs the remote size.
		size, err := e.ws.Remote.Size(ctx, remotePath)
		if err := remoteOp("size", err); err != nil {
			if isNotFound(err) {
				e.logger.Debug("Created object vanished on both sides", zap.String("path", local))
				return nil
			}
			return fmt.Errorf("created %s: %w", local, err)
		}
		in.RemoteSize = size
	}
	class := classify.Classify(in)
	local = classify.EffectivePath(in)

	var localSum *string
	if class == classify.File {
		sum, err := checksum.File(e.ws.FS, local)
		if err != nil {
			return fmt.Errorf("created %s: %w", local, err)
		}
		localSum = &sum
	}

	cat := e.ws.Catalogue
	tracked, err := cat.Exists(ctx, local)
	if err != nil {
		return err
	}
	if tracked {
		err = cat.UpdateLocalChecksum(ctx, local, localSum)
	} else {
		err = cat.InsertLocal(ctx, local, remotePath, class, localSum)
	}
	if err != nil {
		return err
	}

	if err := e.ensureRemote(ctx, local, remotePath, class); err != nil {
		return fmt.Errorf("created %s: %w", local, err)
	}

	remoteSum, err := e.ws.Remote.Checksum(ctx, remotePath, class)
	if err := remoteOp("checksum", err); err != nil {
		return fmt.Errorf("created %s: %w", local, err)
	}
	if err := cat.UpdateRemoteChecksum(ctx, local, remoteSum); err != nil {
		return err
	}

	e.checkDivergence(ctx, local)

	if class == classify.File && e.jobs != nil && e.ws.IsDescriptor(local) {
		if _, err := e.jobs.Dispatch(ctx, local); err != nil {
			return fmt.Errorf("job %s: %w", local, err)
		}
	}
	return nil
}

// ensureRemote creates the remote counterpart of local when it is missing.
func (e *Engine) ensureRemote(ctx context.Context, local, remotePath string, class classify.Classification) error {
	exists, err := e.ws.Remote.Exists(ctx, remotePath)
	if err := remoteOp("exists", err); err != nil {
		return err
	}
	if exists {
		return nil
	}

	switch class {
	case classify.Directory:
		e.logger.Info("Creating remote directory", zap.String("remote", remotePath))
		return remoteOp("mkdir", e.ws.Remote.Mkdir(ctx, remotePath))
	case classify.File:
		e.logger.Info("Uploading file", zap.String("local", local), zap.String("remote", remotePath))
		return remoteOp("put", e.ws.Remote.Put(ctx, local, remotePath))
	default:
		// A link only references an object that already lives remotely.
		return nil
	}
}
