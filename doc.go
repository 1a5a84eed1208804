// Package beanplugins loads named plugin instances from XML descriptors.
//
// Applications register the plugin types they expose in a TypeRegistry and
// describe the instances they want in descriptor files. A Manager scans the
// configured locations, validates every descriptor against an embedded
// schema, then applies all <add> operations followed by all <set>
// operations. The result is a registry of Plugins, each wrapping a bean of
// the manager's supertype plus display metadata and the raw property
// strings bound onto it.
//
// Key Features:
//   - Type-safe beans using Go generics: Manager[Sink] only accepts Sink beans
//   - Two-phase merge: a <set> may refine a plugin added by a later file
//   - Cumulative, all-or-nothing loads published copy-on-write
//   - Property coercion for numbers, booleans, durations, slices and JSON
//   - Wildcard resource scanning over local directories or embedded files
//   - Environment variable expansion in locations and property values
//   - Hot reload of descriptor files through Argus
//
// Basic Usage:
//
//	type Sink interface {
//		Write(p []byte) error
//	}
//
//	type FileSink struct {
//		Path    string
//		Buffer  int
//		Timeout time.Duration
//	}
//
//	types := beanplugins.NewTypeRegistry()
//	beanplugins.RegisterType[FileSink](types, "example.com/app.FileSink")
//
//	resolver := beanplugins.NewFSResolver(beanplugins.OSRoot("app", "./config"))
//	manager, err := beanplugins.NewManager[Sink](types, resolver,
//		beanplugins.ManagerConfig{Locations: []string{"plugins/*.xml"}}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if _, err := manager.Load(); err != nil {
//		log.Fatal(err)
//	}
//
//	sink, ok := manager.GetBean("filesink")
//
// Descriptor format:
//
//	<plugins>
//	  <add class="example.com/app.FileSink" name="filesink">
//	    <document><title>File sink</title></document>
//	    <properties>
//	      <prop name="path" value="/var/log/app.log"/>
//	      <prop name="timeout" value="5s"/>
//	    </properties>
//	  </add>
//	  <set name="filesink">
//	    <properties><prop name="buffer" value="4096"/></properties>
//	  </set>
//	</plugins>
//
// Hot Reload:
// Load is cumulative. Reload rebuilds the registry from the current
// descriptors alone, and a DescriptorWatcher calls it whenever a local
// descriptor file changes:
//
//	watcher, err := beanplugins.NewDescriptorWatcher(manager, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	watcher.Start()
//	defer watcher.Stop()
//
// Errors:
// Every failure aborts the current load and is returned as a go-errors
// error with code ErrCodeLoadFailed whose cause carries the specific code
// (descriptor, plugin, type or binding). Use HasErrorCode to test for one.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package beanplugins
