// Package engine drives pipeline execution: it filters jobs by the incoming
// event, runs each stage's eligible jobs in parallel behind a stage barrier,
// and threads cache restore/save and environment provisioning around every
// job script.
//
// Jobs within one stage are independent and carry no ordering guarantee
// among themselves. Jobs in a later stage never start before every job in
// the prior stage reached a terminal state; that barrier is the only
// synchronization the engine performs. The cache store is the only shared
// resource and its saves are last-writer-wins by contract.
package engine
