package state

// OrderResponseSeeds is the seed material identifying one prepared order
// response. The signing authority over the order's custody account is
// derived from these seeds.
type OrderResponseSeeds struct {
	FastVAAHash [32]byte
	Bump        uint8
}

// PreparedOrderResponse is a validated fast-transfer order whose funds
// sit in a custody account awaiting settlement. It is consumed exactly
// once: settlement moves the redeemer message out, after which the
// record is inert.
type PreparedOrderResponse struct {
	Seeds          OrderResponseSeeds
	BaseFee        uint64
	InitAuctionFee uint64
	SourceChain    uint16
	Sender         [32]byte
	Redeemer       [32]byte

	redeemerMessage []byte
}

// NewPreparedOrderResponse assembles a prepared order response. The
// redeemer message is owned by the returned value from this point on.
func NewPreparedOrderResponse(
	seeds OrderResponseSeeds,
	baseFee, initAuctionFee uint64,
	sourceChain uint16,
	sender, redeemer [32]byte,
	redeemerMessage []byte,
) *PreparedOrderResponse {
	return &PreparedOrderResponse{
		Seeds:           seeds,
		BaseFee:         baseFee,
		InitAuctionFee:  initAuctionFee,
		SourceChain:     sourceChain,
		Sender:          sender,
		Redeemer:        redeemer,
		redeemerMessage: redeemerMessage,
	}
}

// RedeemerMessageLen reports the length of the (not yet taken) redeemer
// message.
func (p *PreparedOrderResponse) RedeemerMessageLen() int {
	return len(p.redeemerMessage)
}

// TakeRedeemerMessage moves the redeemer message out of the order,
// leaving an empty buffer behind so it cannot be delivered twice.
func (p *PreparedOrderResponse) TakeRedeemerMessage() []byte {
	msg := p.redeemerMessage
	p.redeemerMessage = nil
	return msg
}
