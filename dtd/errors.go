package dtd

import "errors"

// ErrIncludeUnsupported is returned for <![INCLUDE[...]]> marked sections,
// which this parser deliberately does not implement (§4.4, §9c); the
// section's content is still consumed so parsing can continue.
var ErrIncludeUnsupported = errors.New("dtd: marked section type INCLUDE is not supported")

// ErrEntityBoundaryDepth is reported when a parameter entity's replacement
// text leaves a content-model group unbalanced across the entity boundary
// (§4.4: "legal only if the group depth returns to its pre-push value
// before the entity ends").
var ErrEntityBoundaryDepth = errors.New("dtd: content model group unbalanced across parameter entity boundary")

var errMixedConnectors = errors.New("dtd: mixed connectors within one content model group")
var errUnterminatedSubset = errors.New("dtd: unterminated internal subset")
var errUndefinedParameterEntity = errors.New("dtd: undefined parameter entity")
var errDuplicateElement = errors.New("dtd: duplicate element declaration")
var errDuplicateEntity = errors.New("dtd: duplicate entity declaration")
