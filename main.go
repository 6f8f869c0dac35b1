// Attestor Subnet Demo
//
// This is the entry point for a standalone demonstration of the attestation
// subnet: a pool of operators independently score a synthetic wallet, sign
// their PCS attestations, and submit responses to a quorum engine that
// finalizes once enough stake-weighted operators agree.
//
// Architecture:
//   - scoring:     pure PCS/PRS score functions
//   - signing:     recoverable-ECDSA signer/verifier
//   - attestation: canonical codec, validator, issuance pipeline
//   - consensus:   multi-operator response quorum engine
//   - external:    on-chain registry calldata + metadata store contracts
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/hetu-project/attestor-subnet/attestation"
	"github.com/hetu-project/attestor-subnet/consensus"
	"github.com/hetu-project/attestor-subnet/external"
	"github.com/hetu-project/attestor-subnet/scoring"
	"github.com/hetu-project/attestor-subnet/signing"
)

type demoOperator struct {
	signer *signing.Signer
}

func newDemoOperator() demoOperator {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return demoOperator{signer: signing.NewSigner(key)}
}

func main() {
	fmt.Println("=== Attestor Subnet Demo ===")
	fmt.Println("Architecture: stake-weighted quorum over independently signed attestations")
	fmt.Println("")

	operators := []demoOperator{newDemoOperator(), newDemoOperator(), newDemoOperator()}

	store := external.NewInMemoryMetadataStore()
	bus := consensus.NewEventBus()
	bus.Subscribe(func(e consensus.Event) {
		fmt.Printf("  [event] %-16s task=%s\n", e.Type, e.TaskID)
	})

	table := consensus.NewOperatorTable(100, bus)
	for _, op := range operators {
		table.Add(op.signer.Address(), 100, 1.0)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := consensus.DefaultConfig()
	engine := consensus.NewEngine(cfg, table, bus)
	engine.SetLogger(logger)
	engine.Run()
	defer engine.Shutdown()

	fmt.Println("Scoring a synthetic wallet (PCS)...")
	wallet := attestation.Subject{1, 2, 3}
	features := scoring.PcsFeatures{
		WalletAgeDays:    730,
		TransactionCount: 1_000,
		SuccessRate:      0.95,
		LpContribution:   10_000,
		LiquidationCount: 0,
	}
	expiry := attestation.NewExpiry(time.Now().Add(time.Hour))

	pcsTask := engine.CreateTask(consensus.ComputePcs, wallet[:])
	var lastSigned attestation.SignedAttestation
	for _, op := range operators {
		pipeline := attestation.NewPipeline(op.signer, store)
		sa, err := pipeline.SignPcs(context.Background(), features, wallet, expiry, "policy-v1")
		if err != nil {
			fmt.Printf("  operator %s failed to sign: %v\n", op.signer.Address(), err)
			continue
		}
		// The payload embeds the signing operator's address and issue second;
		// both are cleared so operators that agree submit identical bytes.
		agreed, _ := attestation.DecodePcsPayload(sa.Request.Data)
		agreed.Operator, agreed.IssuedAt = [20]byte{}, 0
		responseBytes, err := attestation.EncodePcsPayload(agreed)
		if err != nil {
			fmt.Printf("  operator %s failed to encode response: %v\n", op.signer.Address(), err)
			continue
		}
		responseSig, err := op.signer.Sign(consensus.ResponsePreimage(pcsTask, responseBytes))
		if err != nil {
			fmt.Printf("  operator %s failed to sign response: %v\n", op.signer.Address(), err)
			continue
		}
		if err := engine.Ingest(pcsTask, op.signer.Address(), responseBytes, responseSig); err != nil {
			fmt.Printf("  operator %s response rejected: %v\n", op.signer.Address(), err)
			continue
		}
		lastSigned = sa
	}

	task, _ := engine.Task(pcsTask)
	fmt.Println("")
	fmt.Printf("PCS task %s finalized as %s\n", task.ID, task.State)
	if task.State == consensus.Completed {
		decoded, err := attestation.DecodePcsPayload(task.ResolvedResponse)
		if err == nil {
			fmt.Printf("  score=%d tier=%s quorumWeight=%.2f\n", decoded.Score, decoded.Tier, task.QuorumWeight)
		}
		sub := external.FromSignedAttestation(lastSigned)
		if calldata, err := sub.Calldata(); err == nil {
			fmt.Printf("  registry calldata: %d bytes, selector %x\n", len(calldata), calldata[:4])
		}
	}

	fmt.Println("")
	fmt.Println("🎉 Demo complete.")
}
