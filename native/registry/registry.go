// Package registry resolves protocol identifiers to live connectors. It is a
// pure lookup/administration component: it never holds funds and carries no
// business logic beyond its maps.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"yieldvault/native/common"
	"yieldvault/native/connector"
)

const moduleName = "registry"

var (
	ErrUnauthorized      = errors.New("registry: unauthorized")
	ErrInvalidProtocolID = errors.New("registry: protocol id required")
	ErrProtocolExists    = errors.New("registry: protocol already registered")
	ErrProtocolNotFound  = errors.New("registry: protocol not registered")
	ErrConnectorExists   = errors.New("registry: connector already registered")
	ErrConnectorNotFound = errors.New("registry: connector not registered")
	ErrNilConnector      = errors.New("registry: nil connector")
	ErrAssetNotSupported = errors.New("registry: connector does not support asset")
	ErrNoActiveProtocol  = errors.New("registry: no active protocol configured")
)

// Registry owns the protocol-name and (protocol, asset) -> connector maps and
// tracks which protocol is currently active for routing. Mutation is limited
// to the configured operator.
type Registry struct {
	mu       sync.RWMutex
	operator [20]byte
	pauses   common.PauseView
	names    map[string]string
	bindings map[string]connector.Connector
	active   string
}

// New constructs an empty registry administered by operator.
func New(operator [20]byte) *Registry {
	return &Registry{
		operator: operator,
		names:    make(map[string]string),
		bindings: make(map[string]connector.Connector),
	}
}

// SetPauses wires the administrative pause switch.
func (r *Registry) SetPauses(p common.PauseView) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = p
}

// RegisterProtocol records a protocol name once per identifier.
func (r *Registry) RegisterProtocol(caller [20]byte, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidProtocolID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.authorize(caller); err != nil {
		return err
	}
	if _, exists := r.names[id]; exists {
		return ErrProtocolExists
	}
	r.names[id] = strings.TrimSpace(name)
	return nil
}

// RegisterConnector binds a connector to (protocol, asset). The connector must
// recognise the asset or registration is rejected.
func (r *Registry) RegisterConnector(caller [20]byte, id, asset string, conn connector.Connector) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidProtocolID
	}
	if conn == nil {
		return ErrNilConnector
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.authorize(caller); err != nil {
		return err
	}
	if _, exists := r.names[id]; !exists {
		return ErrProtocolNotFound
	}
	if !conn.SupportsAsset(asset) {
		return ErrAssetNotSupported
	}
	key := bindingKey(id, asset)
	if _, exists := r.bindings[key]; exists {
		return ErrConnectorExists
	}
	r.bindings[key] = conn
	return nil
}

// DeregisterConnector removes the (protocol, asset) binding.
func (r *Registry) DeregisterConnector(caller [20]byte, id, asset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.authorize(caller); err != nil {
		return err
	}
	key := bindingKey(strings.TrimSpace(id), asset)
	if _, exists := r.bindings[key]; !exists {
		return ErrConnectorNotFound
	}
	delete(r.bindings, key)
	return nil
}

// SetActiveProtocol marks the protocol id routing should target.
func (r *Registry) SetActiveProtocol(caller [20]byte, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidProtocolID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.authorize(caller); err != nil {
		return err
	}
	if _, exists := r.names[id]; !exists {
		return ErrProtocolNotFound
	}
	r.active = id
	return nil
}

// ActiveProtocol returns the protocol id currently targeted for routing.
func (r *Registry) ActiveProtocol() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		return "", ErrNoActiveProtocol
	}
	return r.active, nil
}

// Resolve returns the connector handling (protocol, asset).
func (r *Registry) Resolve(id, asset string) (connector.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.bindings[bindingKey(strings.TrimSpace(id), asset)]
	if !exists {
		return nil, ErrConnectorNotFound
	}
	return conn, nil
}

// ProtocolName returns the registered display name for a protocol id.
func (r *Registry) ProtocolName(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, exists := r.names[strings.TrimSpace(id)]
	if !exists {
		return "", ErrProtocolNotFound
	}
	return name, nil
}

// Protocols lists every registered protocol id in deterministic order.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.names))
	for id := range r.names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// authorize enforces the operator role and pause switch. Caller holds the lock.
func (r *Registry) authorize(caller [20]byte) error {
	if err := common.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if caller != r.operator {
		return ErrUnauthorized
	}
	return nil
}

func bindingKey(id, asset string) string {
	return id + "/" + strings.ToUpper(strings.TrimSpace(asset))
}
