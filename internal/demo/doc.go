// Package demo is the people-and-counter application used to exercise the
// store: two text inputs, displays of each field, a derived full name and
// a counter, all sharing one store.State through store.Provider.
//
// Runner drives the application without a browser, which is what the
// "extstore demo" command and the golden tests use.
package demo
