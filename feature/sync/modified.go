package sync

import (
	"context"
	"fmt"

	"mrbox/core/checksum"
	"mrbox/core/classify"

	"go.uber.org/zap"
)

func (e *Engine) modified(ctx context.Context, local string) error {
	entry, ok, err := e.ws.Catalogue.Get(ctx, local)
	if err != nil {
		return err
	}
	if !ok {
		// The create was never seen; treat the file as new.
		return e.created(ctx, local, false)
	}
	if entry.Classification != classify.File {
		return nil
	}

	sum, err := checksum.File(e.ws.FS, local)
	if err != nil {
		return fmt.Errorf("modified %s: %w", local, err)
	}
	if err := e.ws.Catalogue.UpdateLocalChecksum(ctx, local, &sum); err != nil {
		return err
	}

	// Writes made by pulling the object down, job outputs included, leave
	// the file equal to its remote copy.
	if entry.RemoteChecksum != nil && *entry.RemoteChecksum == sum {
		e.logger.Debug("File matches its remote copy", zap.String("path", local))
		e.checkDivergence(ctx, local)
		return nil
	}

	// The local checksum stays updated even when the upload fails; the
	// divergence check below reports it.
	err = e.reupload(ctx, local, entry.RemotePath)
	e.checkDivergence(ctx, local)
	if err != nil {
		return fmt.Errorf("modified %s: %w", local, err)
	}
	return nil
}

// repair re-uploads a tracked File from its local copy whatever the stored
// checksums say.
func (e *Engine) repair(ctx context.Context, local string) error {
	entry, ok, err := e.ws.Catalogue.Get(ctx, local)
	if err != nil {
		return err
	}
	if !ok || entry.Classification != classify.File {
		e.logger.Debug("Nothing to repair", zap.String("path", local))
		return nil
	}

	sum, err := checksum.File(e.ws.FS, local)
	if err != nil {
		return fmt.Errorf("repair %s: %w", local, err)
	}
	if err := e.ws.Catalogue.UpdateLocalChecksum(ctx, local, &sum); err != nil {
		return err
	}

	err = e.reupload(ctx, local, entry.RemotePath)
	e.checkDivergence(ctx, local)
	if err != nil {
		return fmt.Errorf("repair %s: %w", local, err)
	}
	return nil
}

func (e *Engine) reupload(ctx context.Context, local, remotePath string) error {
	e.logger.Info("Re-uploading file", zap.String("local", local), zap.String("remote", remotePath))

	if err := remoteOp("rm", e.ws.Remote.Rm(ctx, remotePath)); err != nil && !isNotFound(err) {
		return err
	}
	if err := remoteOp("put", e.ws.Remote.Put(ctx, local, remotePath)); err != nil {
		return err
	}

	sum, err := e.ws.Remote.Checksum(ctx, remotePath, classify.File)
	if err := remoteOp("checksum", err); err != nil {
		return err
	}
	return e.ws.Catalogue.UpdateRemoteChecksum(ctx, local, sum)
}
