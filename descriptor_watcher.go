// descriptor_watcher.go: Hot reload of plugin descriptors powered by Argus
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package beanplugins

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// DescriptorWatcher rebuilds the registry with Manager.Reload whenever one of
// the descriptor files matched by the last load changes on disk.
//
// Only resources with a local path (roots created with OSRoot) can be
// watched. A reload that fails leaves the registry untouched.
//
// Example:
//
//	watcher, err := beanplugins.NewDescriptorWatcher(manager, logger)
//	if err != nil {
//	    return err
//	}
//	if err := watcher.Start(); err != nil {
//	    return err
//	}
//	defer watcher.Stop()
type DescriptorWatcher[B any] struct {
	manager *Manager[B]
	watcher *argus.Watcher
	logger  Logger
	options WatchOptions

	mu       sync.Mutex
	watched  map[string]struct{}
	enabled  int32
	stopped  atomic.Bool
	stopOnce sync.Once

	reloads  atomic.Int64
	failures atomic.Int64
	onReload func(plugins []*Plugin, err error)
}

// NewDescriptorWatcher creates a watcher for manager using its Watch options.
func NewDescriptorWatcher[B any](manager *Manager[B], logger any) (*DescriptorWatcher[B], error) {
	if manager == nil {
		return nil, NewConfigWatcherError("manager cannot be nil", nil)
	}
	options := manager.Config().Watch
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultWatchPollInterval
	}
	internalLogger := NewLogger(logger).With("component", "descriptor_watcher")

	argusConfig := argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.PollInterval / 2,
		MaxWatchedFiles:      100,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			internalLogger.Error("Argus file watching error", "error", err, "file", filepath)
		},
	}
	if options.AuditFile != "" {
		argusConfig.Audit = argus.AuditConfig{
			Enabled:       true,
			OutputFile:    options.AuditFile,
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 5 * time.Second,
		}
	}

	return &DescriptorWatcher[B]{
		manager: manager,
		watcher: argus.New(argusConfig),
		logger:  internalLogger,
		options: options,
		watched: make(map[string]struct{}),
	}, nil
}

// OnReload registers fn to be called after every reload attempt. It must be
// set before Start.
func (w *DescriptorWatcher[B]) OnReload(fn func(plugins []*Plugin, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Start performs an initial load when the manager has not loaded yet, then
// watches every local descriptor file of the last load.
func (w *DescriptorWatcher[B]) Start() error {
	if w.stopped.Load() {
		return NewConfigWatcherError("descriptor watcher has been permanently stopped and cannot be restarted", nil)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&w.enabled, 0, 1) {
		return NewConfigWatcherError("descriptor watcher is already running", nil)
	}

	if w.manager.State() == StateUnloaded {
		if _, err := w.manager.Load(); err != nil {
			atomic.StoreInt32(&w.enabled, 0)
			return NewConfigWatcherError("initial descriptor load failed", err)
		}
	}

	if err := w.watchResourcesLocked(); err != nil {
		atomic.StoreInt32(&w.enabled, 0)
		return err
	}

	if err := w.watcher.Start(); err != nil {
		atomic.StoreInt32(&w.enabled, 0)
		return NewConfigWatcherError("failed to start Argus watcher", err)
	}

	w.logger.Info("Descriptor watcher started",
		"files", len(w.watched),
		"poll_interval", w.options.PollInterval)
	return nil
}

// Stop stops watching. A stopped watcher cannot be restarted.
func (w *DescriptorWatcher[B]) Stop() error {
	if w.stopped.Load() {
		return NewConfigWatcherError("descriptor watcher is already stopped", nil)
	}

	w.mu.Lock()
	if !atomic.CompareAndSwapInt32(&w.enabled, 1, 0) {
		w.mu.Unlock()
		return NewConfigWatcherError("descriptor watcher is not running", nil)
	}
	w.mu.Unlock()

	// The argus poller may be inside handleDescriptorChange, which takes mu.
	var stopErr error
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		if err := w.watcher.Stop(); err != nil {
			stopErr = NewConfigWatcherError("failed to stop Argus watcher", err)
			return
		}
		w.logger.Info("Descriptor watcher stopped")
	})
	return stopErr
}

// IsRunning reports whether the watcher has been started and not stopped.
func (w *DescriptorWatcher[B]) IsRunning() bool {
	return atomic.LoadInt32(&w.enabled) == 1
}

// IsStopped reports whether the watcher has been permanently stopped.
func (w *DescriptorWatcher[B]) IsStopped() bool {
	return w.stopped.Load()
}

// WatchedFiles returns the local paths being watched.
func (w *DescriptorWatcher[B]) WatchedFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for p := range w.watched {
		out = append(out, p)
	}
	return out
}

// Reloads returns the number of reloads triggered by file changes.
func (w *DescriptorWatcher[B]) Reloads() int64 { return w.reloads.Load() }

// FailedReloads returns how many of those reloads failed.
func (w *DescriptorWatcher[B]) FailedReloads() int64 { return w.failures.Load() }

// watchResourcesLocked registers every not yet watched local descriptor.
func (w *DescriptorWatcher[B]) watchResourcesLocked() error {
	for _, res := range w.manager.Resources() {
		local := res.LocalPath()
		if local == "" {
			continue
		}
		if _, ok := w.watched[local]; ok {
			continue
		}
		if err := w.watcher.Watch(local, w.handleDescriptorChange); err != nil {
			return NewConfigWatcherError(fmt.Sprintf("failed to watch descriptor %s", res.URL), err)
		}
		w.watched[local] = struct{}{}
	}
	return nil
}

func (w *DescriptorWatcher[B]) handleDescriptorChange(event argus.ChangeEvent) {
	w.logger.Info("Descriptor change detected",
		"path", event.Path,
		"mod_time", event.ModTime,
		"size", event.Size,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete,
		"is_modify", event.IsModify)

	if event.IsDelete {
		w.logger.Warn("Descriptor was deleted, skipping reload", "path", event.Path)
		return
	}
	if w.stopped.Load() {
		return
	}

	w.reloads.Add(1)
	plugins, err := w.manager.Reload()

	w.mu.Lock()
	callback := w.onReload
	if err == nil {
		if watchErr := w.watchResourcesLocked(); watchErr != nil {
			w.logger.Warn("Could not watch new descriptors", "error", watchErr)
		}
	}
	w.mu.Unlock()

	if err != nil {
		w.failures.Add(1)
		w.logger.Error("Descriptor reload failed, keeping previous plugins", "error", err, "path", event.Path)
	} else {
		w.logger.Info("Descriptor reload completed", "plugins", len(plugins))
	}
	if callback != nil {
		callback(plugins, err)
	}
}
