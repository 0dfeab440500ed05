/*
Package ports defines the interfaces (Ports) used by the Espalier core to
interact with the outside world, following Hexagonal Architecture.

These contracts allow the dispatch core to remain agnostic of specific
implementations (in-memory vs redis template storage, concrete tools vs
bridged sub-plans), enabling dependency inversion and easier testing.
*/
package ports
