package object

import "github.com/edgeo/bacnet-router/bacerr"

// alwaysPresent lists the four identifying properties that Property_List
// never enumerates because the caller can always discover them directly
// per the standard Property_List semantics (clause 12).
var alwaysPresent = map[ID]bool{
	PropObjectIdentifier: true,
	PropObjectType:       true,
	PropObjectName:       true,
	PropPropertyList:     true,
}

// PropertyList synthesizes the member list for Property_List: Required,
// then Optional, then Proprietary, with the four always-present
// identifying properties excluded, mirroring the ordering in
// property_list_encode (original source's proplist.c).
func PropertyList(required, optional, proprietary []ID) []ID {
	var out []ID
	for _, p := range required {
		if alwaysPresent[p] {
			continue
		}
		out = append(out, p)
	}
	out = append(out, optional...)
	out = append(out, proprietary...)
	return out
}

// ReadArrayElement implements the array-property indexing rule:
// index 0 returns nil without emitting (the caller encodes the length),
// ArrayAll calls emitAll, and any other index is 1-based and calls
// emitOne with the 0-based element index. Both callbacks return only an
// error.
func ReadArrayElement(arrayIndex uint32, length int, emitOne func(i int) error, emitAll func() error) error {
	switch {
	case arrayIndex == ArrayLength:
		return nil // caller encodes `length` itself; no per-element emit needed
	case arrayIndex == ArrayAll:
		return emitAll()
	default:
		i := int(arrayIndex)
		if i < 1 || i > length {
			return bacerr.New(bacerr.ClassProperty, bacerr.CodeInvalidArrayIndex)
		}
		return emitOne(i - 1)
	}
}

// NotAnArray is returned when array_index != ArrayAll is requested
// against a scalar property.
func NotAnArray() error {
	return bacerr.New(bacerr.ClassProperty, bacerr.CodePropertyIsNotAnArray)
}
