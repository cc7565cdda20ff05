// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import "os"

// RPC method names, one per namenode/datanode operation. These are the
// strings registered with net/rpc on the server side and dialed by
// pkg/rpc.ConnectionCache.Send on the client side.
const (
	MethodGetFileInfo       = "NamenodeHandler.GetFileInfo"
	MethodGetBlockLocations = "NamenodeHandler.GetBlockLocations"
	MethodOpenAndFetchMeta  = "NamenodeHandler.OpenAndFetchMetaInfo"
	MethodCreate            = "NamenodeHandler.Create"
	MethodAddBlock          = "NamenodeHandler.AddBlock"
	MethodAddBlockAndMeta   = "NamenodeHandler.AddBlockAndFetchMetaInfo"
	MethodComplete          = "NamenodeHandler.Complete"
	MethodDelete            = "NamenodeHandler.Delete"
	MethodRenewLease        = "NamenodeHandler.RenewLease"
	MethodCapabilities      = "NamenodeHandler.Capabilities"

	MethodCopyBlock = "DatanodeHandler.CopyBlock"
)

// Req/Reply pairs, one per RPC method above. Every field is exported so the
// default gob codec can encode them without registration.

type GetFileInfoReq struct {
	Path string
}

type GetFileInfoReply struct {
	Found bool
	Attrs FileAttrs
}

type GetBlockLocationsReq struct {
	Path   string
	Offset int64
	Length int64
}

type GetBlockLocationsReply struct {
	Blocks LocatedBlocks
}

type CreateReq struct {
	Path        string
	Permission  os.FileMode
	ClientName  string
	Overwrite   bool
	CreateParent bool
	Replication int16
	BlockSize   int64
}

type CreateReply struct{}

type AddBlockReq struct {
	Path         string
	ClientName   string
	ExcludeNodes []DatanodeRef
	FavoredNodes []DatanodeRef
	StartPos     int64 // only meaningful when the richest RPC shape is used
}

type AddBlockReply struct {
	Block       LocatedBlock
	NamespaceID NamespaceID
	NotReplicatedYet bool
}

type CompleteReq struct {
	Path       string
	ClientName string
}

type CompleteReply struct {
	Done bool
}

type DeleteReq struct {
	Path      string
	Recursive bool
}

type DeleteReply struct{}

type RenewLeaseReq struct {
	ClientName string
}

type RenewLeaseReply struct{}

// CapabilitiesReq/Reply implement the one-time feature probe described in
// the RPC transport notes: rather than reflecting on method signatures per
// call (as a dynamically-typed RPC stack would), the client asks the
// namenode once, up front, which of the addBlock/open RPC shapes it
// understands, and caches the answer for the life of the handle.
type CapabilitiesReq struct{}

type CapabilitiesReply struct {
	SupportsFederation     bool
	SupportsAddBlockMeta   bool
	SupportsAddBlockStartPos bool
}

type CopyBlockReq struct {
	// ID is a unique token identifying this copy-block attempt, generated
	// client-side with pkg/rpc.GenID so the client's and the receiving
	// (source) datanode's logs can be correlated for the same attempt.
	ID             string
	SrcNamespaceID NamespaceID
	SrcBlock       BlockID
	DstNamespaceID NamespaceID
	DstBlock       BlockID
	DstDatanode    DatanodeRef
	Federated      bool
	Async          bool
}

type CopyBlockReply struct{}
