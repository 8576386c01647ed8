package sync

import (
	"context"
	"fmt"

	"mrbox/core/classify"
	"mrbox/core/remote"

	"go.uber.org/zap"
)

// deleted clears the catalogue before removing the remote object. A failed
// removal leaves an untracked remote object behind.
func (e *Engine) deleted(ctx context.Context, local string, isDir bool) error {
	cat := e.ws.Catalogue
	entry, ok, err := cat.Get(ctx, local)
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("Deleted object is not tracked", zap.String("path", local))
		return nil
	}
	remotePath := entry.RemotePath

	if isDir || entry.Classification == classify.Directory {
		paths, err := remote.Subtree(ctx, e.ws.Remote, remotePath)
		if err := remoteOp("walk", err); err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("deleted %s: %w", local, err)
			}
			paths = []string{remotePath}
		}
		if err := cat.DeleteByRemotePaths(ctx, paths); err != nil {
			return fmt.Errorf("deleted %s: %w", local, err)
		}
	} else {
		if err := cat.DeleteByLocalPaths(ctx, []string{local}); err != nil {
			return fmt.Errorf("deleted %s: %w", local, err)
		}
	}
	e.forgetDivergence(local)

	e.logger.Info("Removing remote object", zap.String("remote", remotePath))
	if err := remoteOp("rm", e.ws.Remote.Rm(ctx, remotePath)); err != nil && !isNotFound(err) {
		return fmt.Errorf("deleted %s: %w", local, err)
	}
	return nil
}
