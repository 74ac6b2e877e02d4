package bridge

// SelectMemoryType returns the lowest index whose bit is set in typeBits and
// whose type is device local. Host-visible memory is never used as a fallback.
func SelectMemoryType(types []MemoryType, typeBits uint32) (uint32, error) {
	for i, t := range types {
		if i >= 32 {
			break
		}
		if typeBits&(1<<uint(i)) == 0 {
			continue
		}
		if t.Properties&MemoryDeviceLocal != 0 {
			return uint32(i), nil
		}
	}
	return 0, &AllocationError{Op: "select memory type", Err: ErrNoDeviceLocalMemory}
}
