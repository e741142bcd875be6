// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

// Item is a dependency item: FilePath declares a dependency on Dependency.
type Item struct {
	FilePath   string `json:"file_path"`
	Dependency string `json:"dependency"`
}

// OutputItems returns an item for each call, in the same order.
//
// FilePath is the value of the last `MainFile` argument of the call,
// and Dependency is the value of the last `File` argument.
// They are empty if the call has no such argument.
// Items are neither deduplicated nor filtered, so the i-th item
// always corresponds to the i-th call.
func OutputItems(calls []CallbackCall) []Item {
	if len(calls) == 0 {
		return nil
	}
	items := make([]Item, 0, len(calls))
	for _, call := range calls {
		var item Item
		for _, arg := range call.Arguments {
			switch arg.Name {
			case "File":
				item.Dependency = arg.Value
			case "MainFile":
				item.FilePath = arg.Value
			}
		}
		items = append(items, item)
	}
	return items
}
