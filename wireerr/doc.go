// Package wireerr classifies transport failures into a closed set of kinds.
//
// Every failed request surfaces as an *Error whose Kind tells the caller why
// the exchange failed:
//
//   - KindTimeout: the deadline elapsed before the response completed
//   - KindConnectionRefused: the destination refused the connection
//   - KindSocketHangUp: the peer closed before sending a complete response head
//   - KindConnectionReset: the peer reset the connection mid-transfer
//   - KindProtocol: the response head could not be parsed
//   - KindAborted: the body ended before its declared length
//   - KindTransport: any other stream failure
//
// Kinds are matched with errors.Is against the package sentinels:
//
//	if errors.Is(err, wireerr.ErrTimeout) {
//	    // poll again later
//	}
//
// Replies the server produced on purpose (non-2xx with an exception body) are
// not transport failures; they are reported as *ServerError.
package wireerr
