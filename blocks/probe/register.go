package probe

import (
	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
)

// SourceType returns the registered type name of TagSource[T]
func SourceType[T numeric.Number]() string { return "probe.tag_source:" + numeric.TypeName[T]() }

// MonitorType returns the registered type name of TagMonitor[T]
func MonitorType[T numeric.Number]() string { return "probe.tag_monitor:" + numeric.TypeName[T]() }

// SinkType returns the registered type name of TagSink[T]
func SinkType[T numeric.Number]() string { return "probe.tag_sink:" + numeric.TypeName[T]() }

// Register registers the probe blocks for every numeric sample type
func Register(registry *block.Registry) error {
	if registry == nil {
		return errors.WrapFatal(errors.ErrConfigInvalid, "probe", "Register", "nil registry")
	}
	for _, register := range []func(*block.Registry) error{
		registerType[int8], registerType[int16], registerType[int32], registerType[int64],
		registerType[uint8], registerType[uint16], registerType[uint32], registerType[uint64],
		registerType[float32], registerType[float64],
	} {
		if err := register(registry); err != nil {
			return err
		}
	}
	return nil
}

func registerType[T numeric.Number](registry *block.Registry) error {
	registrations := []block.Registration{
		{
			Type:        SourceType[T](),
			Description: "Emits a fixed number of samples with scheduled tags",
			Capability:  block.CapabilityBulk,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewTagSource[T](name, props, deps)
			},
		},
		{
			Type:        MonitorType[T](),
			Description: "Passes samples through and records samples and tags",
			Capability:  block.CapabilityBulk,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewTagMonitor[T](name, props, deps)
			},
		},
		{
			Type:        SinkType[T](),
			Description: "Consumes samples and records samples and tags",
			Capability:  block.CapabilityBulk,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewTagSink[T](name, props, deps)
			},
		},
	}
	for _, reg := range registrations {
		if err := registry.Register(reg); err != nil {
			return errors.Wrap(err, "probe", "Register", reg.Type)
		}
	}
	return nil
}
