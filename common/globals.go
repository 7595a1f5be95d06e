package common

const (
	AccountTypeIncoming = "incoming"
	AccountTypeCurrent  = "current"
	AccountTypeFees     = "fees"

	ProofVerifierGroth16 = "groth16"
	ProofVerifierAccept  = "accept"
	ProofVerifierReject  = "reject"

	MemoryDatabaseUri = "memory://"

	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"

	// echo context key of the authenticated caller's common.Address
	CallerContextKey = "Address"

	// layout of the public signals of the age/identity circuit: [commitment, currentTimestamp, minimumAge]
	PublicInputCommitment     = 0
	PublicInputTimestamp      = 1
	PublicInputMinimumAge     = 2
	PublicInputsWithTimestamp = 3
)
