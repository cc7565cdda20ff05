// Copyright (c) 2017 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// FastCopy's RPCs never carry bulk block data (see DESIGN.md), so the
// teacher's tract-sized buffer pooling (pkg/rpc/pool.go) was dropped. These
// two functions are kept only so bulk_codec.go's BulkData code path (never
// exercised by any FastCopy message type) still compiles; they allocate
// directly instead of pooling.

package rpc

// GetBuffer returns a []byte with length n and capacity >= n.
func GetBuffer(n int) []byte {
	return make([]byte, n)
}

// PutBuffer is a no-op: there is no pool to return buffers to.
func PutBuffer(b []byte, exclusive bool) {
}
