package controllers

// Request/response types for the queue HTTP controllers.

// addReq is the body of POST /v1/queues/{name}/add.
type addReq struct {
	Data        []byte `json:"data"`
	ExpiresAtMs int64  `json:"expiresAtMs,omitempty"`
}

// addResp is the response to a successful add.
type addResp struct {
	OK bool `json:"ok"`
}

// getReq is the body of POST /v1/queues/{name}/get.
type getReq struct {
	// WaitMs bounds how long to block for an item; 0 means return
	// immediately.
	WaitMs        int64 `json:"waitMs,omitempty"`
	Transactional bool  `json:"transactional,omitempty"`
	Peek          bool  `json:"peek,omitempty"`
}

// getResp is the response to a get: Found is false when no item was
// available before the deadline.
type getResp struct {
	Found       bool   `json:"found"`
	Data        []byte `json:"data,omitempty"`
	AddedAtMs   int64  `json:"addedAtMs,omitempty"`
	ExpiresAtMs int64  `json:"expiresAtMs,omitempty"`
	Xid         string `json:"xid,omitempty"`
}

// ackReq and abortReq both carry the xid returned by a transactional get.
type ackReq struct {
	Xid string `json:"xid"`
}

type abortReq struct {
	Xid string `json:"xid"`
}

// countResp reports how many expired items a flushExpired removed.
type countResp struct {
	Count int `json:"count"`
}

// statsResp wraps a queue's or alias's dumpStats() snapshot.
type statsResp struct {
	Found bool              `json:"found"`
	Stats map[string]string `json:"stats,omitempty"`
}

// snapshotResp mirrors collection.Snapshot for the admin overview endpoint.
type snapshotResp struct {
	QueueCount   int    `json:"queueCount"`
	AliasCount   int    `json:"aliasCount"`
	CurrentItems int64  `json:"currentItems"`
	CurrentBytes int64  `json:"currentBytes"`
	TotalItems   uint64 `json:"totalItems"`
	GetHits      uint64 `json:"getHits"`
	GetMisses    uint64 `json:"getMisses"`
}

// reloadReq is the body of POST /v1/admin/reload.
type reloadReq struct {
	ConfigPath string `json:"configPath"`
}
