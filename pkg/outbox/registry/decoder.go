package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// Decoder turns the data field of an envelope into a typed payload.
type Decoder func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores payload decoders per event type and schema version.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]Decoder
	latest   map[enums.OutboxEventType]int
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{
		registry: make(map[registryKey]Decoder),
		latest:   make(map[enums.OutboxEventType]int),
	}
}

// Register stores a decoder for the event type and version, replacing any previous one.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
	if version > r.latest[eventType] {
		r.latest[eventType] = version
	}
}

// JSONDecoder builds a Decoder that unmarshals into a fresh value from factory.
func JSONDecoder(factory func() interface{}) Decoder {
	return func(payload json.RawMessage) (interface{}, error) {
		target := factory()
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// Latest returns the highest registered version for the event type, or 0.
func (r *DecoderRegistry) Latest(eventType enums.OutboxEventType) int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.latest[eventType]
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
