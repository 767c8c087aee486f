// Copyright 2026 The Xaig Authors. All rights reserved.  Use of this source
// code is governed by a license that can be found in the License file.

package xaig

// Version is recorded in the trailing comment of every written file.
const Version = "0.3.1"
