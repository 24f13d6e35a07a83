package network

// Message ids carried in the packet header.
const (
	MsgTypeHeartbeat = 1

	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeLeaveRoom  = 103

	MsgTypePlayerAction = 201

	MsgTypeRoomState    = 301
	MsgTypeStateChanged = 302
	MsgTypePlayerJoined = 303
	MsgTypePlayerLeft   = 304
	MsgTypeRoundStart   = 305
	MsgTypeRoundSync    = 306
	MsgTypeRoundEnd     = 307

	MsgTypeError = 901
)
