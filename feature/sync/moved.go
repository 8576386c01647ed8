package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"mrbox/core/catalogue"
	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/remote"

	"go.uber.org/zap"
)

type linkRewrite struct {
	local  string
	remote string
}

// moved propagates a rename of src to dest. Any not-found failure means a
// previous event already took care of it.
func (e *Engine) moved(ctx context.Context, src, dest string, isDir bool) error {
	err := e.move(ctx, src, dest, isDir)
	if isNotFound(err) {
		e.logger.Debug("Move already handled", zap.String("src", src), zap.String("dest", dest))
		return nil
	}
	return err
}

func (e *Engine) move(ctx context.Context, src, dest string, isDir bool) error {
	cat := e.ws.Catalogue
	entry, ok, err := cat.Get(ctx, src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not tracked", remote.ErrNotFound, src)
	}
	oldRemote := entry.RemotePath
	newRemote, err := e.ws.ToRemote(dest)
	if err != nil {
		return err
	}

	// A rename onto a tracked path, as editors do when saving through a
	// temporary file, replaces that row.
	target, replacing, err := cat.Get(ctx, dest)
	if err != nil {
		return err
	}
	if replacing && target.RemotePath == oldRemote {
		replacing = false
	}

	var (
		renames []catalogue.Rename
		links   []linkRewrite
	)
	if isDir || entry.Classification == classify.Directory {
		renames, links, err = e.subtreeRenames(ctx, oldRemote, dest, newRemote)
		if err != nil {
			return err
		}
	} else {
		renames = []catalogue.Rename{{OldRemote: oldRemote, NewLocal: dest, NewRemote: newRemote}}
		if entry.Classification == classify.Link {
			links = append(links, linkRewrite{local: dest, remote: newRemote})
		}
	}

	for i := range renames {
		renames[i].Replace = replacing && renames[i].NewLocal == dest
	}
	if err := cat.RenameBatch(ctx, renames); err != nil {
		return fmt.Errorf("moved %s: %w", src, err)
	}
	if replacing {
		e.forgetDivergence(dest)
	}
	e.renameDivergence(src, dest)

	for _, l := range links {
		if err := e.ws.WriteLink(l.local, l.remote); err != nil {
			e.logger.Error("Failed to rewrite link", zap.String("path", l.local), zap.Error(err))
		}
	}

	// A link renamed only by its suffix keeps its remote path.
	if oldRemote == newRemote {
		return nil
	}

	if replacing && target.RemotePath != newRemote {
		if err := remoteOp("rm", e.ws.Remote.Rm(ctx, target.RemotePath)); err != nil && !isNotFound(err) {
			e.logger.Warn("Failed to remove replaced object", zap.String("remote", target.RemotePath), zap.Error(err))
		}
	}

	e.logger.Info("Moving remote object", zap.String("src", oldRemote), zap.String("dest", newRemote))
	if err := remoteOp("mv", e.ws.Remote.Mv(ctx, oldRemote, newRemote)); err != nil {
		return fmt.Errorf("moved %s: %w", src, err)
	}

	if replacing && entry.Classification == classify.File {
		return e.refreshChecksums(ctx, dest, newRemote)
	}
	return nil
}

// refreshChecksums stores both checksums of a File whose remote object was
// just overwritten and reruns the divergence check.
func (e *Engine) refreshChecksums(ctx context.Context, local, remotePath string) error {
	sum, err := checksum.File(e.ws.FS, local)
	if err != nil {
		return fmt.Errorf("moved onto %s: %w", local, err)
	}
	if err := e.ws.Catalogue.UpdateLocalChecksum(ctx, local, &sum); err != nil {
		return err
	}

	remoteSum, err := e.ws.Remote.Checksum(ctx, remotePath, classify.File)
	if err := remoteOp("checksum", err); err != nil {
		return fmt.Errorf("moved onto %s: %w", local, err)
	}
	if err := e.ws.Catalogue.UpdateRemoteChecksum(ctx, local, remoteSum); err != nil {
		return err
	}
	e.checkDivergence(ctx, local)
	return nil
}

// subtreeRenames maps every remote path under oldRemote onto dest and newRemote,
// keeping the relative shape of the tree.
func (e *Engine) subtreeRenames(ctx context.Context, oldRemote, dest, newRemote string) ([]catalogue.Rename, []linkRewrite, error) {
	paths, err := remote.Subtree(ctx, e.ws.Remote, oldRemote)
	if err := remoteOp("walk", err); err != nil {
		return nil, nil, err
	}

	var (
		renames []catalogue.Rename
		links   []linkRewrite
	)
	for _, rp := range paths {
		if rp == oldRemote {
			renames = append(renames, catalogue.Rename{OldRemote: oldRemote, NewLocal: dest, NewRemote: newRemote})
			continue
		}

		suffix := strings.TrimPrefix(rp, oldRemote)
		newLocal := dest + filepath.FromSlash(suffix)
		newRp := newRemote + suffix

		class, ok, err := e.ws.Catalogue.LookupClassification(ctx, rp)
		if err != nil {
			return nil, nil, err
		}
		if ok && class == classify.Link {
			newLocal = classify.LinkPath(newLocal)
			links = append(links, linkRewrite{local: newLocal, remote: newRp})
		}
		renames = append(renames, catalogue.Rename{OldRemote: rp, NewLocal: newLocal, NewRemote: newRp})
	}
	return renames, links, nil
}
