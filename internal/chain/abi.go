package chain

// Only the methods the service calls are declared.
const wheelABIJSON = `[
  {"type":"function","name":"currentRound","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"lastBetBlock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"MIN_WAIT_BLOCK","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getResult","stateMutability":"view","inputs":[{"name":"roundId","type":"uint256"}],"outputs":[{"name":"multiplier","type":"uint256"},{"name":"segmentIndex","type":"uint256"},{"name":"isWin","type":"bool"}]},
  {"type":"function","name":"checkUserAllowance","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"placeBet","stateMutability":"nonpayable","inputs":[{"name":"risk","type":"uint8"},{"name":"noOfSegments","type":"uint8"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const tokenABIJSON = `[
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`
