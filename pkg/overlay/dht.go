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

package overlay

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/agentweb-project/agentweb/internal/logger"
)

// DHTOverlay is a Kademlia-backed Client. Identifiers, prefixed with the
// "/agentweb/" validator namespace, are the DHT keys; the kad-dht record
// validator accepts any key (AgentRecord
// integrity is verified above this layer, by RecordRegistry, via the
// identifier's self-certifying digest).
type DHTOverlay struct {
	host host.Host
	dht  *dht.IpfsDHT
	log  logger.Logger
}

// recordValidator accepts any record under any key: DHTOverlay stores
// opaque AgentRecord JSON, and identity verification happens in
// RecordRegistry rather than in the DHT's record-validation layer.
type recordValidator struct{}

func (recordValidator) Validate(key string, value []byte) error { return nil }
func (recordValidator) Select(key string, values [][]byte) (int, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("overlay: no values to select from")
	}
	return 0, nil
}

// NewDHTOverlay starts a libp2p host listening on host:port, joins the
// DHT in server mode, and bootstraps against peerAddr if non-empty.
func NewDHTOverlay(ctx context.Context, listenHost string, listenPort int, peerAddr string) (*DHTOverlay, error) {
	listenAddr, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/%s/tcp/%d", listenHost, listenPort))
	if err != nil {
		return nil, fmt.Errorf("overlay: invalid listen address: %w", err)
	}

	h, err := libp2p.New(libp2p.ListenAddrs(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("overlay: create libp2p host: %w", err)
	}

	kad, err := dht.New(ctx, h, dht.Mode(dht.ModeServer),
		dht.NamespacedValidator("agentweb", recordValidator{}))
	if err != nil {
		return nil, fmt.Errorf("overlay: create dht: %w", err)
	}

	if err := kad.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("overlay: bootstrap self: %w", err)
	}

	o := &DHTOverlay{host: h, dht: kad, log: logger.Default().WithFields(logger.String("component", "overlay"))}

	if peerAddr != "" {
		if err := o.connectBootstrap(ctx, peerAddr); err != nil {
			o.log.Warn("failed to connect to bootstrap peer", logger.String("peer", peerAddr), logger.Error(err))
		}
	}

	return o, nil
}

func (o *DHTOverlay) connectBootstrap(ctx context.Context, peerAddr string) error {
	addr, err := multiaddr.NewMultiaddr(peerAddr)
	if err != nil {
		return fmt.Errorf("parse bootstrap multiaddr: %w", err)
	}
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("parse bootstrap peer info: %w", err)
	}
	return o.host.Connect(ctx, *info)
}

// namespacedKey prefixes a bare identifier with the validator namespace
// go-libp2p-kad-dht requires ("/agentweb/<key>").
func namespacedKey(key string) string {
	return "/agentweb/" + key
}

// Put stores value under key in the DHT.
func (o *DHTOverlay) Put(ctx context.Context, key, value string) error {
	if err := o.dht.PutValue(ctx, namespacedKey(key), []byte(value)); err != nil {
		return fmt.Errorf("overlay: put: %w", err)
	}
	return nil
}

// Get retrieves the value stored under key, if any peer has it.
func (o *DHTOverlay) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := o.dht.GetValue(ctx, namespacedKey(key))
	if err != nil {
		return "", false, nil
	}
	return string(value), true, nil
}

// Close shuts down the DHT and underlying libp2p host.
func (o *DHTOverlay) Close() error {
	if err := o.dht.Close(); err != nil {
		return err
	}
	return o.host.Close()
}
