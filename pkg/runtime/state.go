// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package runtime composes the identity, overlay, record, indexer,
// ranking, and RPC subsystems into a single long-running agent
// process.
package runtime

import "fmt"

// State is a stage in an AgentRuntime's lifecycle. States only
// advance forward; they never move backward.
type State int

const (
	Initializing State = iota
	KeyReady
	OverlayJoined
	Listening
	Registered
	Serving
	Shutdown
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case KeyReady:
		return "KEY_READY"
	case OverlayJoined:
		return "OVERLAY_JOINED"
	case Listening:
		return "LISTENING"
	case Registered:
		return "REGISTERED"
	case Serving:
		return "SERVING"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}
