// Package clinical is the contract surface of the clinical-records
// ledger: six named contracts sharing one world state. The registry
// holds all roster and record data; the three layer contracts and
// the orchestrator put the role and lifecycle rules in front of it.
package clinical

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Contracts returns every contract of the ledger, ready to hand to
// contractapi.NewChaincode
func Contracts() []contractapi.ContractInterface {
	return []contractapi.ContractInterface{
		NewRegistryContract(),
		NewAccessContract(),
		NewDoctorRosterContract(),
		NewRecordsContract(),
		NewSystemContract(),
		NewSystemProxyContract(),
	}
}
