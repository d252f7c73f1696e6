package curve

// maxCoins bounds the coins(i) index scan. Stable pools hold 2-4
// coins; 8 leaves headroom for metapools.
const maxCoins = 8

// PoolABI covers coin enumeration and the pool's own quote function.
const PoolABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "arg0", "type": "uint256"}],
		"name": "coins",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "int128", "name": "i", "type": "int128"},
			{"internalType": "int128", "name": "j", "type": "int128"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"}
		],
		"name": "get_dy",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`
