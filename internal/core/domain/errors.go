package domain

import "errors"

var (
	ErrPeerNotFound     = errors.New("peer not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrAlreadyJoined    = errors.New("peer already joined a room")
	ErrTokenUnavailable = errors.New("token issuance unavailable")
)
