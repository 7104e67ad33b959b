/*
Package consensus runs the round machine of the agent on top of a BFT
replication engine.

	        +----------------+  NO_MAJORITY / ROUND_TIMEOUT
	        |                v        |
	        |        +---------------+-+
	        +--------+ api_check_round |
	                 +-------+---------+
	                         | DONE
	                         v
	               +-----------------------+  NO_MAJORITY / ROUND_TIMEOUT
	               | decision_making_round +-------------+
	               +---+---------------+---+ <-----------+
	        DONE/ERROR |               | TRANSACT
	                   v               v
	 +--------------------------------+ +----------------------+  NO_MAJORITY / ROUND_TIMEOUT
	 | finished_decision_making_round | | tx_preparation_round +-------------+
	 +--------------------------------+ +----------+-----------+ <-----------+
	                                               | DONE
	                                               v
	                              +-------------------------------+
	                              | finished_tx_preparation_round |
	                              +-------------------------------+

Application
	- AbciApp - the static protocol graph, validated once at startup
	- Round - the active round instance; collects signed payloads delivered
	  in blocks and ends in EndBlock once ceil(2n/3) agree or agreement
	  became impossible
	- Timeouts - round deadlines measured in block time, checked in BeginBlock
	- Store - every committed document version, keyed by height
	- EventSwitch - fires EventNewRound for the behaviour driver

Every transition creates a fresh round instance with an increasing count.
Payload transactions carry that count, so a payload meant for an expired
instance is rejected even when the next instance has the same type.
*/
package consensus
