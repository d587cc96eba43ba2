// Package filter maps request parameters onto collection-narrowing
// operations.
//
// A host declares the filters it permits in a [Registry]. At request time an
// [Engine] reads the host's collection slot, folds every declared [Spec] over
// it in declaration order, and writes the narrowed collection back. Each spec
// is opt-in per request: a missing or blank parameter leaves the collection
// untouched.
//
// Every spec narrows in one of three ways, checked in this order:
//
//  1. scope: a named collection operation registered with
//     [Registry.RegisterScope] and resolved when the filter is declared.
//  2. query: a custom [QueryFunc] supplied with the declaration.
//  3. where: the collection's own equality filter on the spec's name.
package filter
